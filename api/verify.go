package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Seann-Moser/patrongate"
	"github.com/Seann-Moser/patrongate/patreon"
)

const verifyCacheTTL = 60 * time.Second

// VerifyHandler reports whether the caller holds an active membership on an
// allow-listed tier.
func (s *Server) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	identity := patrongate.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	verification, err := s.verify(r.Context(), identity)
	if err != nil {
		s.verificationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"verified": verification.IsPatron,
		"status":   statusLabel(verification.IsPatron),
	})
}

// TierHandler returns the caller's matched tier details.
func (s *Server) TierHandler(w http.ResponseWriter, r *http.Request) {
	identity := patrongate.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	verification, err := s.verify(r.Context(), identity)
	if err != nil {
		s.verificationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tierName":    verification.TierName,
		"amountCents": verification.AmountCents,
		"isActive":    verification.IsPatron,
		"status":      statusLabel(verification.IsPatron),
	})
}

// AdminTiersHandler lists the tier descriptors visible in the caller's own
// snapshot, with a ready-made allow-list value. Configuration helper for
// first-time deployments.
func (s *Server) AdminTiersHandler(w http.ResponseWriter, r *http.Request) {
	identity := patrongate.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Log in with Patreon first to get access token")
		return
	}

	snapshot, err := identity.Snapshot(r.Context())
	if err != nil {
		s.verificationError(w, err)
		return
	}

	tiers := tierListing(snapshot)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Copy these tier IDs to your MY_TIER_IDS environment variable",
		"tiers":            tiers,
		"suggested_config": suggestedConfig(tiers),
	})
}

// CampaignTiersHandler lists a campaign's tiers without authentication,
// when PATREON_CAMPAIGN_ID is configured.
func (s *Server) CampaignTiersHandler(w http.ResponseWriter, r *http.Request) {
	if s.campaignID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"error": "PATREON_CAMPAIGN_ID not configured",
			"instructions": []string{
				"1. Log in via Patreon (/oauth/login)",
				"2. Visit /api/admin/tiers to get actual tier IDs",
				"3. Add them to MY_TIER_IDS in your environment",
			},
		})
		return
	}

	snapshot, err := s.patreon.FetchCampaignTiers(r.Context(), s.campaignID)
	if err != nil {
		s.logger.Error("campaign_tiers_fetch_failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusBadGateway, "Failed to fetch public tier information")
		return
	}

	tiers := tierListing(snapshot)
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign_id":      s.campaignID,
		"tiers":            tiers,
		"suggested_config": suggestedConfig(tiers),
	})
}

// verify evaluates the tier policy against a fresh snapshot, going through
// the redis cache when one is configured.
func (s *Server) verify(ctx context.Context, identity *patrongate.Identity) (patreon.Verification, error) {
	cacheKey := "patrongate:verify:" + identity.Patron.PatreonID

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var verification patreon.Verification
			if err := json.Unmarshal([]byte(cached), &verification); err == nil {
				return verification, nil
			}
		}
	}

	snapshot, err := identity.Snapshot(ctx)
	if err != nil {
		return patreon.Verification{}, err
	}
	verification := patreon.VerifyMembershipTier(snapshot, s.tierIDs, s.minAmountCents)

	if s.redis != nil {
		if encoded, err := json.Marshal(verification); err == nil {
			_ = s.redis.Set(ctx, cacheKey, encoded, verifyCacheTTL).Err()
		}
	}
	return verification, nil
}

func (s *Server) verificationError(w http.ResponseWriter, err error) {
	s.logger.Error("verification_failed", map[string]any{"error": err.Error()})
	if errors.Is(err, patreon.ErrUnauthenticated) {
		writeError(w, http.StatusUnauthorized, "Patreon rejected the access token")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to verify patron status")
}

func statusLabel(isPatron bool) string {
	if isPatron {
		return "active"
	}
	return "inactive"
}

type tierInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	AmountCents     int    `json:"amount_cents"`
	AmountFormatted string `json:"amount_formatted"`
}

func tierListing(snapshot *patreon.IdentitySnapshot) []tierInfo {
	var out []tierInfo
	for _, tier := range snapshot.Tiers() {
		title := tier.Attributes.Title
		if title == "" {
			title = "Unknown"
		}
		formatted := "Free"
		if tier.Attributes.AmountCents > 0 {
			formatted = fmt.Sprintf("$%.2f", float64(tier.Attributes.AmountCents)/100)
		}
		out = append(out, tierInfo{
			ID:              tier.ID,
			Title:           title,
			AmountCents:     tier.Attributes.AmountCents,
			AmountFormatted: formatted,
		})
	}
	return out
}

func suggestedConfig(tiers []tierInfo) string {
	ids := ""
	for i, tier := range tiers {
		if i > 0 {
			ids += ","
		}
		ids += tier.ID
	}
	return "MY_TIER_IDS=" + ids
}
