package patreon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Field lists requested from APIv2. Asking for explicit fields keeps the
// response shape stable across API changes.
const (
	userFields   = "email,full_name"
	memberFields = "currently_entitled_amount_cents,patron_status,last_charge_date,last_charge_status,lifetime_support_cents"
	tierFields   = "title,amount_cents"
)

// FetchIdentity fetches the caller's identity plus membership and tier
// includes in one round trip. The returned snapshot is ephemeral; callers
// evaluate it and throw it away.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*IdentitySnapshot, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	q := url.Values{}
	q.Set("include", "memberships,memberships.currently_entitled_tiers")
	q.Set("fields[user]", userFields)
	q.Set("fields[member]", memberFields)
	q.Set("fields[tier]", tierFields)

	var snapshot IdentitySnapshot
	if err := c.getJSON(ctx, c.apiBase+"/identity?"+q.Encode(), accessToken, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FetchCampaignMembers lists one page of a campaign's members. cursor is the
// opaque continuation value from a previous page, or "" for the first page.
// Administrative use only; the verification hot path never calls this.
func (c *Client) FetchCampaignMembers(ctx context.Context, accessToken, campaignID, cursor string) (*MemberPage, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	q := url.Values{}
	q.Set("include", "currently_entitled_tiers,user")
	q.Set("fields[member]", memberFields+",full_name")
	q.Set("fields[tier]", tierFields)
	q.Set("fields[user]", userFields)
	if cursor != "" {
		q.Set("page[cursor]", cursor)
	}

	var body struct {
		Data     []Resource `json:"data"`
		Included []Resource `json:"included"`
		Meta     struct {
			Pagination struct {
				Cursors struct {
					Next string `json:"next"`
				} `json:"cursors"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	endpoint := fmt.Sprintf("%s/campaigns/%s/members?%s", c.apiBase, url.PathEscape(campaignID), q.Encode())
	if err := c.getJSON(ctx, endpoint, accessToken, &body); err != nil {
		return nil, err
	}
	return &MemberPage{
		Members:    body.Data,
		Included:   body.Included,
		NextCursor: body.Meta.Pagination.Cursors.Next,
	}, nil
}

// FetchCampaignTiers fetches a campaign's tier listing with no user token.
// Used by the configuration helper that suggests allow-list values.
func (c *Client) FetchCampaignTiers(ctx context.Context, campaignID string) (*IdentitySnapshot, error) {
	q := url.Values{}
	q.Set("include", "tiers")
	q.Set("fields[tier]", tierFields)

	var snapshot IdentitySnapshot
	endpoint := fmt.Sprintf("%s/campaigns/%s?%s", c.apiBase, url.PathEscape(campaignID), q.Encode())
	if err := c.getJSON(ctx, endpoint, "", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}
