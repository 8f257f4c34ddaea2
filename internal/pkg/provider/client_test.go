package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckPayment(t *testing.T) {
	var gotBody checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment_check" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"paid": true})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Handle: "loja", HTTPClient: srv.Client()}

	paid, err := c.CheckPayment(context.Background(), "nsu-1", "tx-9", "inv-slug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !paid {
		t.Fatalf("expected paid=true")
	}
	if gotBody.Handle != "loja" || gotBody.OrderNsu != "nsu-1" || gotBody.TransactionNsu != "tx-9" || gotBody.Slug != "inv-slug" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestCheckPayment_NotPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"paid": false})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	paid, err := c.CheckPayment(context.Background(), "nsu-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid {
		t.Fatalf("expected paid=false")
	}
}

func TestCheckPayment_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := c.CheckPayment(context.Background(), "nsu-1", "", ""); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestCheckPayment_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: &http.Client{Timeout: 20 * time.Millisecond}}
	if _, err := c.CheckPayment(context.Background(), "nsu-1", "", ""); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestCheckPayment_MissingConfig(t *testing.T) {
	c := &Client{HTTPClient: http.DefaultClient}
	if _, err := c.CheckPayment(context.Background(), "nsu-1", "", ""); err == nil {
		t.Fatalf("expected error without base URL")
	}
	c.BaseURL = "http://localhost:1"
	if _, err := c.CheckPayment(context.Background(), "", "", ""); err == nil {
		t.Fatalf("expected error without order nsu")
	}
}
