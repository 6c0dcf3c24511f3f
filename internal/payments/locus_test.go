package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/livva-hq/settlement/internal/payments"
	"go.uber.org/zap"
)

var ctx = context.Background()

func TestLocus_simulatedModeWithoutKey(t *testing.T) {
	c := payments.NewLocusChannel("", "", 0, zap.NewNop())

	sess, err := c.CreateSession(ctx, payments.SessionRequest{
		ListingID: "listing_1",
		Amount:    800,
		Currency:  "usd",
		TenantID:  "tenant@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sess.SessionID, "loc_sess_") {
		t.Errorf("session id: got %q, want loc_sess_ prefix", sess.SessionID)
	}
	if !strings.Contains(sess.CheckoutURL, sess.SessionID) {
		t.Errorf("checkout url %q does not reference session id", sess.CheckoutURL)
	}
	if time.Until(sess.ExpiresAt) < 23*time.Hour {
		t.Errorf("expiry too soon: %v", sess.ExpiresAt)
	}
}

func TestLocus_liveRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/deposit-sessions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_locus_test" {
			t.Errorf("auth header: got %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["listing_id"] != "listing_1" {
			t.Errorf("listing_id: got %v", body["listing_id"])
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"session_id":   "loc_sess_live_1",
			"checkout_url": "https://paywithlocus.com/checkout/loc_sess_live_1",
			"expires_at":   time.Now().Add(24 * time.Hour).UTC(),
		})
	}))
	defer srv.Close()

	c := payments.NewLocusChannel(srv.URL, "sk_locus_test", 5*time.Second, zap.NewNop())
	sess, err := c.CreateSession(ctx, payments.SessionRequest{
		ListingID: "listing_1",
		Amount:    800,
		Currency:  "usd",
		TenantID:  "tenant@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.SessionID != "loc_sess_live_1" {
		t.Errorf("session id: got %q", sess.SessionID)
	}
}

func TestLocus_serverErrorIsChannelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := payments.NewLocusChannel(srv.URL, "sk_locus_test", 5*time.Second, zap.NewNop())
	_, err := c.CreateSession(ctx, payments.SessionRequest{ListingID: "x", Amount: 1, Currency: "usd"})
	if !errors.Is(err, payments.ErrChannelUnavailable) {
		t.Errorf("got %v, want ErrChannelUnavailable", err)
	}
}

func TestStripe_unconfiguredIsChannelUnavailable(t *testing.T) {
	c := payments.NewStripeChannel("", "", zap.NewNop())
	_, err := c.CreateSession(ctx, payments.SessionRequest{ListingID: "x", Amount: 1, Currency: "usd"})
	if !errors.Is(err, payments.ErrChannelUnavailable) {
		t.Errorf("got %v, want ErrChannelUnavailable", err)
	}
}
