package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v76"

	"toptours-server/internal/billing"
)

type fakeBilling struct {
	verify func(payload []byte, sigHeader string) (stripe.Event, error)
	handle func(ctx context.Context, event stripe.Event) error
}

func (f *fakeBilling) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return f.verify(payload, sigHeader)
}

func (f *fakeBilling) HandleEvent(ctx context.Context, event stripe.Event) error {
	return f.handle(ctx, event)
}

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	return req
}

func TestBillingWebhookProcessed(t *testing.T) {
	var handled string
	app := newTestApp(&fakePromo{})
	app.Billing = &fakeBilling{
		verify: func(payload []byte, sigHeader string) (stripe.Event, error) {
			if sigHeader == "" {
				t.Fatal("signature header not forwarded")
			}
			return stripe.Event{ID: "evt_1", Type: "customer.subscription.updated"}, nil
		},
		handle: func(_ context.Context, event stripe.Event) error {
			handled = event.ID
			return nil
		},
	}

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, webhookRequest(`{"id":"evt_1"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if handled != "evt_1" {
		t.Fatalf("handled event = %q, want evt_1", handled)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "processed" {
		t.Fatalf("status field = %q", body["status"])
	}
}

func TestBillingWebhookIgnoredEvent(t *testing.T) {
	app := newTestApp(&fakePromo{})
	app.Billing = &fakeBilling{
		verify: func([]byte, string) (stripe.Event, error) {
			return stripe.Event{ID: "evt_2", Type: "invoice.paid"}, nil
		},
		handle: func(context.Context, stripe.Event) error {
			return billing.ErrIgnoredEvent
		},
	}

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, webhookRequest(`{"id":"evt_2"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so Stripe stops retrying", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ignored" {
		t.Fatalf("status field = %q", body["status"])
	}
}

func TestBillingWebhookBadSignature(t *testing.T) {
	app := newTestApp(&fakePromo{})
	app.Billing = &fakeBilling{
		verify: func([]byte, string) (stripe.Event, error) {
			return stripe.Event{}, errors.New("signature mismatch")
		},
		handle: func(context.Context, stripe.Event) error {
			t.Fatal("handler called despite bad signature")
			return nil
		},
	}

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, webhookRequest(`{}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "invalid_signature" {
		t.Fatalf("error code = %q", code)
	}
}

func TestBillingWebhookHandlerFailure(t *testing.T) {
	app := newTestApp(&fakePromo{})
	app.Billing = &fakeBilling{
		verify: func([]byte, string) (stripe.Event, error) {
			return stripe.Event{ID: "evt_3", Type: "customer.subscription.created"}, nil
		},
		handle: func(context.Context, stripe.Event) error {
			return errors.New("db unavailable")
		},
	}

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, webhookRequest(`{}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so Stripe retries", rec.Code)
	}
}
