package patreon

import "time"

// TokenPair holds the access + refresh token issued for a patron.
// ExpiresAt is the absolute instant the access token becomes invalid;
// it is computed from the provider's expires_in at the moment the
// token response is received, never carried as a relative duration.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IssuedAt     time.Time
}

// PatronStatus values Patreon reports on a member resource.
const (
	StatusActivePatron   = "active_patron"
	StatusDeclinedPatron = "declined_patron"
	StatusFormerPatron   = "former_patron"
)

// ResourceRef is a JSON:API {type, id} pointer into the included side-table.
type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RelationshipList is a to-many JSON:API relationship.
type RelationshipList struct {
	Data []ResourceRef `json:"data"`
}

// RelationshipOne is a to-one JSON:API relationship.
type RelationshipOne struct {
	Data *ResourceRef `json:"data"`
}

// Attributes carries the union of the attribute fields we request across
// user, member and tier resources. Every field is optional on the wire;
// absent fields decode to their zero value so policy code never has to
// null-check the payload shape.
type Attributes struct {
	// user
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`

	// member
	PatronStatus                 string `json:"patron_status,omitempty"`
	CurrentlyEntitledAmountCents int    `json:"currently_entitled_amount_cents,omitempty"`
	LastChargeDate               string `json:"last_charge_date,omitempty"`
	LastChargeStatus             string `json:"last_charge_status,omitempty"`
	LifetimeSupportCents         int    `json:"lifetime_support_cents,omitempty"`

	// tier
	Title       string `json:"title,omitempty"`
	AmountCents int    `json:"amount_cents,omitempty"`
}

// Relationships carries the relationship pointers we consume.
type Relationships struct {
	CurrentlyEntitledTiers *RelationshipList `json:"currently_entitled_tiers,omitempty"`
	User                   *RelationshipOne  `json:"user,omitempty"`
}

// Resource is a typed JSON:API record.
type Resource struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Attributes    Attributes     `json:"attributes"`
	Relationships *Relationships `json:"relationships,omitempty"`
}

// EntitledTierRefs returns the currently-entitled tier references, or nil
// when the relationship is absent.
func (r *Resource) EntitledTierRefs() []ResourceRef {
	if r == nil || r.Relationships == nil || r.Relationships.CurrentlyEntitledTiers == nil {
		return nil
	}
	return r.Relationships.CurrentlyEntitledTiers.Data
}

// UserRef returns the subject user reference, or nil when absent.
func (r *Resource) UserRef() *ResourceRef {
	if r == nil || r.Relationships == nil || r.Relationships.User == nil {
		return nil
	}
	return r.Relationships.User.Data
}

// IdentitySnapshot is a point-in-time fetch of identity + membership + tier
// data from the identity endpoint. It is consumed per verification call and
// never persisted in full.
type IdentitySnapshot struct {
	Data     *Resource  `json:"data"`
	Included []Resource `json:"included"`
}

// Memberships returns the member resources from the included side-table.
func (s *IdentitySnapshot) Memberships() []Resource {
	if s == nil {
		return nil
	}
	var out []Resource
	for _, item := range s.Included {
		if item.Type == "member" {
			out = append(out, item)
		}
	}
	return out
}

// Tiers returns the tier resources from the included side-table.
func (s *IdentitySnapshot) Tiers() []Resource {
	if s == nil {
		return nil
	}
	var out []Resource
	for _, item := range s.Included {
		if item.Type == "tier" {
			out = append(out, item)
		}
	}
	return out
}

// TierByID resolves a tier reference against the included side-table.
func (s *IdentitySnapshot) TierByID(id string) *Resource {
	if s == nil {
		return nil
	}
	for i := range s.Included {
		if s.Included[i].Type == "tier" && s.Included[i].ID == id {
			return &s.Included[i]
		}
	}
	return nil
}

// UserID returns the platform user ID of the snapshot's subject.
func (s *IdentitySnapshot) UserID() string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data.ID
}

// Email returns the subject's email, or "".
func (s *IdentitySnapshot) Email() string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data.Attributes.Email
}

// FullName returns the subject's full name, or "".
func (s *IdentitySnapshot) FullName() string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data.Attributes.FullName
}

// MemberPage is one page of a campaign member listing. NextCursor is opaque;
// an empty value means the listing is exhausted.
type MemberPage struct {
	Members    []Resource
	Included   []Resource
	NextCursor string
}
