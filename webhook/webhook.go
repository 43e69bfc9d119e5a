package webhook

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Seann-Moser/patrongate/observability"
	"github.com/Seann-Moser/patrongate/patreon"
	"github.com/Seann-Moser/patrongate/store"
)

// Headers Patreon sends with every delivery.
const (
	SignatureHeader = "X-Patreon-Signature"
	EventHeader     = "X-Patreon-Event"
)

// Member event types we apply; anything else is acknowledged and ignored.
const (
	EventMemberCreate = "members:create"
	EventMemberUpdate = "members:update"
	EventMemberDelete = "members:delete"
)

// Handler ingests Patreon webhook deliveries. It is stateless per call and
// independent of any live OAuth session: the delta goes straight to the
// credential store.
type Handler struct {
	store  store.Store
	secret string
	logger *observability.Logger
}

// NewHandler constructs a Handler. An empty secret disables signature
// validation; that degraded mode is logged on every delivery so it cannot
// pass silently.
func NewHandler(st store.Store, secret string, logger *observability.Logger) *Handler {
	return &Handler{store: st, secret: secret, logger: logger}
}

// ServeHTTP processes one delivery. 2xx acknowledges the event, including
// ignored event types and member events with no attributable subject.
// Signature failures return 401 and store failures 500, both of which make
// Patreon retry the delivery.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook_invalid_signature", map[string]any{
			"event": r.Header.Get(EventHeader),
		})
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get(EventHeader)
	switch eventType {
	case EventMemberCreate, EventMemberUpdate, EventMemberDelete:
		if err := h.processMemberEvent(r, body, eventType); err != nil {
			h.logger.Error("webhook_processing_failed", map[string]any{
				"event": eventType,
				"error": err.Error(),
			})
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}
	default:
		h.logger.Info("webhook_event_ignored", map[string]any{"event": eventType})
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook processed"))
}

// validSignature checks the HMAC over the exact received bytes. Patreon
// signs with HMAC-MD5 hex; matching that is a compatibility requirement of
// the external system, not an algorithm choice made here.
func (h *Handler) validSignature(body []byte, signature string) bool {
	if h.secret == "" {
		h.logger.Warn("webhook_signature_check_skipped", map[string]any{
			"reason": "no webhook secret configured",
		})
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(md5.New, []byte(h.secret))
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(digest))
}

func (h *Handler) processMemberEvent(r *http.Request, body []byte, eventType string) error {
	var payload struct {
		Data *patreon.Resource `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Malformed payload cannot be attributed to a patron; acknowledge
		// rather than asking Patreon to redeliver the same bytes forever.
		h.logger.Warn("webhook_malformed_payload", map[string]any{
			"event": eventType,
			"error": err.Error(),
		})
		return nil
	}

	userRef := payload.Data.UserRef()
	if userRef == nil || userRef.ID == "" {
		// No subject relationship: nothing to update.
		h.logger.Info("webhook_missing_subject", map[string]any{"event": eventType})
		return nil
	}

	status := "unknown"
	amountCents := 0
	if payload.Data != nil {
		if payload.Data.Attributes.PatronStatus != "" {
			status = payload.Data.Attributes.PatronStatus
		}
		amountCents = payload.Data.Attributes.CurrentlyEntitledAmountCents
	}

	return h.store.ApplyMembershipUpdate(r.Context(), userRef.ID, store.MembershipUpdate{
		Status:      status,
		AmountCents: amountCents,
		EventType:   eventType,
		At:          time.Now().UTC(),
	})
}
