package patreon

import (
	"testing"
)

func snapshotWithMembership(status string, amountCents int, tierRefs ...string) *IdentitySnapshot {
	refs := make([]ResourceRef, 0, len(tierRefs))
	for _, id := range tierRefs {
		refs = append(refs, ResourceRef{Type: "tier", ID: id})
	}
	return &IdentitySnapshot{
		Data: &Resource{Type: "user", ID: "12345"},
		Included: []Resource{
			{
				Type: "member",
				ID:   "member-1",
				Attributes: Attributes{
					PatronStatus:                 status,
					CurrentlyEntitledAmountCents: amountCents,
				},
				Relationships: &Relationships{
					CurrentlyEntitledTiers: &RelationshipList{Data: refs},
				},
			},
			{Type: "tier", ID: "T1", Attributes: Attributes{Title: "Supporter", AmountCents: 500}},
			{Type: "tier", ID: "T2", Attributes: Attributes{Title: "Backer", AmountCents: 1000}},
		},
	}
}

func TestVerifyMembershipTier(t *testing.T) {
	tests := []struct {
		name           string
		snapshot       *IdentitySnapshot
		tierIDs        []string
		minAmountCents int
		want           Verification
	}{
		{
			name:           "nil snapshot",
			snapshot:       nil,
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "snapshot without data",
			snapshot:       &IdentitySnapshot{},
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "no memberships",
			snapshot:       &IdentitySnapshot{Data: &Resource{Type: "user", ID: "12345"}},
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "empty allow-list fails closed",
			snapshot:       snapshotWithMembership(StatusActivePatron, 500, "T1"),
			tierIDs:        nil,
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "active patron on allowed tier",
			snapshot:       snapshotWithMembership(StatusActivePatron, 500, "T1"),
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{IsPatron: true, HasTier: true, AmountCents: 500, TierName: "Supporter"},
		},
		{
			name:           "active patron below minimum amount",
			snapshot:       snapshotWithMembership(StatusActivePatron, 500, "T1"),
			tierIDs:        []string{"T1"},
			minAmountCents: 1000,
			want:           Verification{IsPatron: true, HasTier: false, AmountCents: 500, TierName: "Supporter"},
		},
		{
			name:           "no tier overlap with allow-list",
			snapshot:       snapshotWithMembership(StatusActivePatron, 500, "T2"),
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "declined patron never verifies",
			snapshot:       snapshotWithMembership(StatusDeclinedPatron, 500, "T1"),
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name:           "former patron never verifies",
			snapshot:       snapshotWithMembership(StatusFormerPatron, 500, "T1"),
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
		{
			name: "membership without relationships degrades to zero",
			snapshot: &IdentitySnapshot{
				Data: &Resource{Type: "user", ID: "12345"},
				Included: []Resource{
					{Type: "member", Attributes: Attributes{PatronStatus: StatusActivePatron, CurrentlyEntitledAmountCents: 500}},
				},
			},
			tierIDs:        []string{"T1"},
			minAmountCents: 300,
			want:           Verification{TierName: "None"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyMembershipTier(tt.snapshot, tt.tierIDs, tt.minAmountCents)
			if got != tt.want {
				t.Errorf("VerifyMembershipTier() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestVerifyMembershipTier_FirstMatchWins(t *testing.T) {
	// Two active memberships both overlap the allow-list; snapshot order
	// decides, not amount.
	snapshot := &IdentitySnapshot{
		Data: &Resource{Type: "user", ID: "12345"},
		Included: []Resource{
			{
				Type:       "member",
				ID:         "member-low",
				Attributes: Attributes{PatronStatus: StatusActivePatron, CurrentlyEntitledAmountCents: 300},
				Relationships: &Relationships{
					CurrentlyEntitledTiers: &RelationshipList{Data: []ResourceRef{{Type: "tier", ID: "T1"}}},
				},
			},
			{
				Type:       "member",
				ID:         "member-high",
				Attributes: Attributes{PatronStatus: StatusActivePatron, CurrentlyEntitledAmountCents: 5000},
				Relationships: &Relationships{
					CurrentlyEntitledTiers: &RelationshipList{Data: []ResourceRef{{Type: "tier", ID: "T2"}}},
				},
			},
			{Type: "tier", ID: "T1", Attributes: Attributes{Title: "Supporter"}},
			{Type: "tier", ID: "T2", Attributes: Attributes{Title: "Backer"}},
		},
	}

	got := VerifyMembershipTier(snapshot, []string{"T1", "T2"}, 300)
	if got.AmountCents != 300 || got.TierName != "Supporter" {
		t.Errorf("expected first membership in snapshot order to win, got %+v", got)
	}
}

func TestVerifyMembershipTier_UnresolvedTierTitle(t *testing.T) {
	// Allowed tier reference with no matching tier record in the side-table.
	snapshot := &IdentitySnapshot{
		Data: &Resource{Type: "user", ID: "12345"},
		Included: []Resource{
			{
				Type:       "member",
				Attributes: Attributes{PatronStatus: StatusActivePatron, CurrentlyEntitledAmountCents: 500},
				Relationships: &Relationships{
					CurrentlyEntitledTiers: &RelationshipList{Data: []ResourceRef{{Type: "tier", ID: "T9"}}},
				},
			},
		},
	}

	got := VerifyMembershipTier(snapshot, []string{"T9"}, 300)
	if !got.IsPatron {
		t.Fatalf("expected patron, got %+v", got)
	}
	if got.TierName != "Unknown" {
		t.Errorf("expected TierName %q, got %q", "Unknown", got.TierName)
	}
}
