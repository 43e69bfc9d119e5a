package patreon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	authorizeURL = "https://www.patreon.com/oauth2/authorize"
	tokenURL     = "https://www.patreon.com/api/oauth2/token"
	apiBase      = "https://www.patreon.com/api/oauth2/v2"

	// APIv2 scopes; granular on purpose.
	oauthScopes = "identity identity[email] identity.memberships campaigns campaigns.members"

	defaultUserAgent = "patrongate - Patron Verification v2"
	defaultTimeout   = 10 * time.Second
)

// Error taxonomy for the token endpoint and the identity/members endpoints.
// Callers branch with errors.Is; RemoteError carries the status code for
// anything the taxonomy does not name.
var (
	// ErrInvalidClient means the client configuration is incomplete. No
	// network call is attempted.
	ErrInvalidClient = errors.New("patreon: oauth client misconfigured")

	// ErrInvalidGrant means the remote rejected the grant, typically a
	// reused or expired authorization code or a rotated-away refresh token.
	ErrInvalidGrant = errors.New("patreon: authorization grant rejected")

	// ErrNetwork covers transport failures and timeouts.
	ErrNetwork = errors.New("patreon: network error")

	// ErrUnauthenticated means the access token was rejected (401).
	ErrUnauthenticated = errors.New("patreon: access token rejected")

	// ErrUpstream covers 5xx responses and malformed bodies.
	ErrUpstream = errors.New("patreon: upstream error")
)

// RemoteError is a non-2xx token-endpoint response outside the named taxonomy.
type RemoteError struct {
	StatusCode int
	Code       string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("patreon: remote error %d (%s)", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("patreon: remote error %d", e.StatusCode)
}

// Config holds the registered OAuth application details.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// UserAgent is sent on every outbound request. Defaults to
	// defaultUserAgent when empty.
	UserAgent string

	// HTTPClient overrides the transport, mainly for tests. A bounded
	// timeout is applied when nil.
	HTTPClient *http.Client
}

// Client talks to Patreon's OAuth2 token endpoint and APIv2. It holds no
// per-user state; callers persist the token pairs it returns.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	userAgent  string
	apiBase    string
}

// New constructs a Client from the registered application config.
func New(cfg Config) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oauthScopes},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: hc,
		userAgent:  ua,
		apiBase:    apiBase,
	}
}

// AuthURL builds the browser-facing authorization URL. Deterministic, no
// side effects; state is the caller's CSRF token.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a token pair. The code is
// single-use; this call is never retried.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenPair, error) {
	if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" || c.oauth.RedirectURL == "" {
		return TokenPair{}, ErrInvalidClient
	}
	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return TokenPair{}, mapTokenError(err)
	}
	return pairFromToken(tok), nil
}

// Refresh trades a refresh token for a fresh token pair. It mutates no local
// state; callers persist the result. Network failures get one bounded retry,
// which is safe because the refresh grant is idempotent until rotation.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" {
		return TokenPair{}, ErrInvalidClient
	}
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidGrant
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ts := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
		tok, err := ts.Token()
		if err == nil {
			return pairFromToken(tok), nil
		}
		lastErr = mapTokenError(err)
		if !errors.Is(lastErr, ErrNetwork) {
			return TokenPair{}, lastErr
		}
	}
	return TokenPair{}, lastErr
}

// withHTTPClient routes the oauth2 package through our transport so the
// timeout and User-Agent apply to token-endpoint calls too.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: &userAgentTransport{agent: c.userAgent, next: c.httpClient.Transport},
	})
}

func pairFromToken(tok *oauth2.Token) TokenPair {
	return TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		IssuedAt:     time.Now().UTC(),
	}
}

func mapTokenError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.ErrorCode == "invalid_grant" {
			return fmt.Errorf("%w: %s", ErrInvalidGrant, rErr.ErrorDescription)
		}
		code := rErr.ErrorCode
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return &RemoteError{StatusCode: status, Code: code}
	}
	var uErr *url.Error
	if errors.As(err, &uErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, uErr)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// userAgentTransport stamps the User-Agent header on every request.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return next.RoundTrip(clone)
}
