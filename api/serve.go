package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/Seann-Moser/patrongate/observability"
	"github.com/Seann-Moser/patrongate/patreon"
	"github.com/Seann-Moser/patrongate/session"
	"github.com/Seann-Moser/patrongate/store"
)

const (
	stateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
	sessionTTL      = 7 * 24 * time.Hour
)

// Server holds the HTTP surface around the verification core: the OAuth
// login/redirect flow plus the patron-facing verification endpoints.
type Server struct {
	Store         store.Store
	SessionSecret []byte

	patreon        patreon.Service
	tierIDs        []string
	minAmountCents int
	campaignID     string
	redis          redis.Cmdable
	logger         *observability.Logger
}

// NewServer creates a new Server instance. tierIDs is the deployment's
// allow-list; empty means verification fails closed for everyone.
func NewServer(client patreon.Service, st store.Store, sessionSecret []byte, tierIDs []string, minAmountCents int, campaignID string, logger *observability.Logger) *Server {
	return &Server{
		Store:          st,
		SessionSecret:  sessionSecret,
		patreon:        client,
		tierIDs:        tierIDs,
		minAmountCents: minAmountCents,
		campaignID:     campaignID,
		logger:         logger,
	}
}

// SetupRedis enables short-TTL caching of verification results. Optional;
// without it every verify call fetches a fresh snapshot.
func (s *Server) SetupRedis(cmdable redis.Cmdable) {
	s.redis = cmdable
}

// writeJSON helper sends a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error writing JSON response: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// writeError helper sends a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// LoginHandler starts the OAuth flow: mint a CSRF state value, remember it
// in a short-lived cookie, and send the browser to Patreon.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/oauth",
		Expires:  time.Now().Add(stateTTL),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.patreon.AuthURL(state), http.StatusFound)
}

// RedirectHandler is the OAuth callback: verify state, exchange the code,
// fetch the caller's identity, persist the credential record, and establish
// the session.
func (s *Server) RedirectHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code missing")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "State mismatch")
		return
	}
	clearStateCookie(w)

	tokens, err := s.patreon.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Error("code_exchange_failed", map[string]any{"error": err.Error()})
		switch {
		case errors.Is(err, patreon.ErrInvalidGrant):
			writeError(w, http.StatusBadRequest, "Authorization code rejected")
		case errors.Is(err, patreon.ErrInvalidClient):
			writeError(w, http.StatusInternalServerError, "OAuth client misconfigured")
		default:
			writeError(w, http.StatusBadGateway, "Authentication failed")
		}
		return
	}

	snapshot, err := s.patreon.FetchIdentity(r.Context(), tokens.AccessToken)
	if err != nil || snapshot.UserID() == "" {
		s.logger.Error("identity_fetch_failed", map[string]any{"error": errString(err)})
		writeError(w, http.StatusBadGateway, "Authentication failed")
		return
	}

	profile := store.Profile{
		PatreonID: snapshot.UserID(),
		Email:     snapshot.Email(),
		FullName:  snapshot.FullName(),
	}
	if err := s.Store.Upsert(r.Context(), profile, tokens); err != nil {
		s.logger.Error("persist_patron_failed", map[string]any{
			"patreon_id": profile.PatreonID,
			"error":      err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	sessionData := &session.Data{
		PatreonID: profile.PatreonID,
		ExpiresAt: time.Now().Add(sessionTTL).Unix(),
	}
	if err := session.SetSessionCookie(w, r, sessionData, s.SessionSecret); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set session")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// LogoutHandler clears the session reference. The credential record stays;
// logging back in reuses it.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/oauth",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func errString(err error) string {
	if err == nil {
		return "empty identity response"
	}
	return err.Error()
}
