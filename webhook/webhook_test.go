package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Seann-Moser/patrongate/observability"
	"github.com/Seann-Moser/patrongate/store"
)

const webhookSecret = "webhook-test-secret"

const memberPayload = `{
	"data": {
		"type": "member",
		"id": "member-1",
		"attributes": {
			"patron_status": "active_patron",
			"currently_entitled_amount_cents": 500
		},
		"relationships": {
			"user": {"data": {"type": "user", "id": "12345"}}
		}
	}
}`

func sign(secret, body string) string {
	mac := hmac.New(md5.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func deliver(h *Handler, event, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/patreon", strings.NewReader(body))
	req.Header.Set(EventHeader, event)
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_ValidSignatureApplied(t *testing.T) {
	var applied *store.MembershipUpdate
	var appliedID string
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			appliedID = patreonID
			applied = &u
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	rr := deliver(h, EventMemberUpdate, memberPayload, sign(webhookSecret, memberPayload))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	if applied == nil {
		t.Fatal("membership update was not applied")
	}
	if appliedID != "12345" {
		t.Errorf("patreonID = %q", appliedID)
	}
	if applied.Status != "active_patron" || applied.AmountCents != 500 {
		t.Errorf("update = %+v", applied)
	}
	if applied.EventType != EventMemberUpdate {
		t.Errorf("EventType = %q", applied.EventType)
	}
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			t.Error("store must not be touched on signature failure")
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	// Signature computed over the original body, then one byte flipped.
	tampered := strings.Replace(memberPayload, "500", "501", 1)
	rr := deliver(h, EventMemberUpdate, tampered, sign(webhookSecret, memberPayload))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rr.Code)
	}
}

func TestWebhook_TamperedSignatureRejected(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			t.Error("store must not be touched on signature failure")
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	good := sign(webhookSecret, memberPayload)
	bad := "0" + good[1:]
	if bad == good {
		bad = "1" + good[1:]
	}
	rr := deliver(h, EventMemberUpdate, memberPayload, bad)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rr.Code)
	}
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	h := NewHandler(&store.Mock{}, webhookSecret, observability.NewLogger())
	rr := deliver(h, EventMemberUpdate, memberPayload, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rr.Code)
	}
}

func TestWebhook_NoSecretSkipsValidation(t *testing.T) {
	applied := false
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			applied = true
			return nil
		},
	}
	h := NewHandler(st, "", observability.NewLogger())

	rr := deliver(h, EventMemberCreate, memberPayload, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	if !applied {
		t.Error("update should be applied when no secret is configured")
	}
}

func TestWebhook_IgnoredEventAcknowledged(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			t.Error("non-member events must not touch the store")
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	body := `{"data": {"type": "pledge", "id": "p1"}}`
	rr := deliver(h, "pledges:create", body, sign(webhookSecret, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
}

func TestWebhook_MissingSubjectAcknowledged(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			t.Error("events without a subject must not touch the store")
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	body := `{"data": {"type": "member", "id": "member-1", "attributes": {"patron_status": "active_patron"}}}`
	rr := deliver(h, EventMemberUpdate, body, sign(webhookSecret, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
}

func TestWebhook_MalformedPayloadAcknowledged(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			t.Error("malformed payloads must not touch the store")
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	body := `{"data": {`
	rr := deliver(h, EventMemberUpdate, body, sign(webhookSecret, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, redelivering the same bytes cannot help", rr.Code)
	}
}

func TestWebhook_StoreFailureReturns500(t *testing.T) {
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			return errors.New("write timeout")
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	rr := deliver(h, EventMemberDelete, memberPayload, sign(webhookSecret, memberPayload))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500 so Patreon retries", rr.Code)
	}
}

func TestWebhook_DefaultsWhenAttributesAbsent(t *testing.T) {
	var applied *store.MembershipUpdate
	st := &store.Mock{
		ApplyMembershipUpdateFunc: func(ctx context.Context, patreonID string, u store.MembershipUpdate) error {
			applied = &u
			return nil
		},
	}
	h := NewHandler(st, webhookSecret, observability.NewLogger())

	body := `{"data": {"type": "member", "id": "member-2", "relationships": {"user": {"data": {"type": "user", "id": "67890"}}}}}`
	rr := deliver(h, EventMemberDelete, body, sign(webhookSecret, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	if applied == nil {
		t.Fatal("membership update was not applied")
	}
	if applied.Status != "unknown" {
		t.Errorf("Status = %q; want unknown", applied.Status)
	}
	if applied.AmountCents != 0 {
		t.Errorf("AmountCents = %d; want 0", applied.AmountCents)
	}
}
