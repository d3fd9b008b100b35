package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"carhive/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text", Output: os.Stderr})
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Errorf("Authorization = %q", auth)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_abc",
			"url": "https://checkout.stripe.com/pay/cs_test_abc",
			"status": "open",
			"payment_status": "unpaid",
			"metadata": {"bookingId": "66a1"}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		SecretKey: "sk_test_123",
		APIBase:   server.URL,
		Timeout:   2 * time.Second,
	}, testLogger())

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		AmountMinor: 450000,
		Currency:    "inr",
		ProductName: "Hyundai Creta",
		Description: "Rental 2026-09-01 - 2026-09-05",
		SuccessURL:  "http://localhost:5177/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   "http://localhost:5177/cancel",
		Metadata:    map[string]string{"bookingId": "66a1"},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}

	if session.ID != "cs_test_abc" {
		t.Errorf("session.ID = %q, want cs_test_abc", session.ID)
	}
	if session.URL == "" {
		t.Error("session.URL is empty")
	}

	wantFields := map[string]string{
		"mode":                                 "payment",
		"payment_method_types[0]":              "card",
		"line_items[0][price_data][currency]":  "inr",
		"line_items[0][price_data][unit_amount]": "450000",
		"line_items[0][price_data][product_data][name]": "Hyundai Creta",
		"line_items[0][quantity]":              "1",
		"metadata[bookingId]":                  "66a1",
	}
	for field, want := range wantFields {
		if got := gotForm[field]; got != want {
			t.Errorf("form[%q] = %q, want %q", field, got, want)
		}
	}
}

func TestRetrieveSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/sessions/cs_test_abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_abc",
			"status": "complete",
			"payment_status": "paid",
			"payment_intent": "pi_123",
			"amount_total": 450000,
			"currency": "inr",
			"metadata": {"bookingId": "66a1"}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_123", APIBase: server.URL}, testLogger())

	session, err := client.RetrieveSession(context.Background(), "cs_test_abc")
	if err != nil {
		t.Fatalf("RetrieveSession() error = %v", err)
	}

	if session.PaymentStatus != PaymentStatusPaid {
		t.Errorf("PaymentStatus = %q, want %q", session.PaymentStatus, PaymentStatusPaid)
	}
	if session.PaymentIntent != "pi_123" {
		t.Errorf("PaymentIntent = %q, want pi_123", session.PaymentIntent)
	}
	if session.Metadata["bookingId"] != "66a1" {
		t.Errorf("Metadata[bookingId] = %q, want 66a1", session.Metadata["bookingId"])
	}
}

func TestRetrieveSessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout session"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_123", APIBase: server.URL}, testLogger())

	_, err := client.RetrieveSession(context.Background(), "cs_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("RetrieveSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency: xyz"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_123", APIBase: server.URL}, testLogger())

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		AmountMinor: 100,
		Currency:    "xyz",
		ProductName: "Test",
	})
	if err == nil {
		t.Fatal("CreateCheckoutSession() expected error")
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient(Config{}, testLogger())

	if client.Configured() {
		t.Error("Configured() = true without secret key")
	}

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreateCheckoutSession() error = %v, want ErrNotConfigured", err)
	}

	_, err = client.RetrieveSession(context.Background(), "cs_test")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RetrieveSession() error = %v, want ErrNotConfigured", err)
	}
}
