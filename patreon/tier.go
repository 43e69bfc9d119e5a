package patreon

// Verification is the outcome of matching a membership snapshot against
// the deployment's tier policy.
type Verification struct {
	IsPatron    bool   `json:"isPatron"`
	HasTier     bool   `json:"hasTier"`
	AmountCents int    `json:"amountCents"`
	TierName    string `json:"tierName"`
}

// VerifyMembershipTier decides patron status from a snapshot. Pure function,
// no I/O.
//
// tierIDs is the deployment's allow-list. An empty allow-list means nobody
// verifies: an unconfigured deployment fails closed rather than open. When
// several active memberships qualify, the first in snapshot order wins; the
// upstream API documents no sort order, so ties are first-seen.
//
// A nil or structurally incomplete snapshot degrades to the zero result,
// never panics.
func VerifyMembershipTier(snapshot *IdentitySnapshot, tierIDs []string, minAmountCents int) Verification {
	result := Verification{TierName: "None"}

	if snapshot == nil || snapshot.Data == nil {
		return result
	}
	if len(tierIDs) == 0 {
		return result
	}

	allowed := make(map[string]struct{}, len(tierIDs))
	for _, id := range tierIDs {
		allowed[id] = struct{}{}
	}

	for _, membership := range snapshot.Memberships() {
		if membership.Attributes.PatronStatus != StatusActivePatron {
			continue
		}
		refs := membership.EntitledTierRefs()
		if !anyAllowed(refs, allowed) {
			continue
		}

		tierName := "Unknown"
		if len(refs) > 0 {
			if tier := snapshot.TierByID(refs[0].ID); tier != nil && tier.Attributes.Title != "" {
				tierName = tier.Attributes.Title
			}
		}

		result.IsPatron = true
		result.AmountCents = membership.Attributes.CurrentlyEntitledAmountCents
		result.TierName = tierName
		result.HasTier = result.AmountCents >= minAmountCents
		return result
	}

	return result
}

func anyAllowed(refs []ResourceRef, allowed map[string]struct{}) bool {
	for _, ref := range refs {
		if _, ok := allowed[ref.ID]; ok {
			return true
		}
	}
	return false
}
