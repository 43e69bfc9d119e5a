package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var SameSite = http.SameSiteLaxMode

func GetSession(ctx context.Context) (*Data, error) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return nil, errors.New("no session in context")
	}
	d, ok := v.(*Data)
	if !ok {
		return nil, errors.New("invalid session type in context")
	}
	return d, nil
}

// Compute HMAC-SHA256 signature of a message using secret
func computeHMAC(message string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Validate HMAC signature
func validateHMAC(message, sig string, secret []byte) bool {
	expected := computeHMAC(message, secret)
	return hmac.Equal([]byte(sig), []byte(expected))
}

// SetSessionCookie serializes session data, signs it, and sets it as an HTTP cookie
func SetSessionCookie(w http.ResponseWriter, r *http.Request, d *Data, secret []byte) error {
	jsonData, err := json.Marshal(d)
	if err != nil {
		return err
	}
	value := base64.URLEncoding.EncodeToString(jsonData)
	sig := computeHMAC(value, secret)
	cookieValue := fmt.Sprintf("%s|%s", value, sig)
	var expires time.Time
	if d.ExpiresAt > 0 {
		expires = time.Unix(d.ExpiresAt, 0)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		Domain:   cookieDomain(r),
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: SameSite,
	})
	return nil
}

// ClearSessionCookie clears the session cookie by setting its expiration to a past date.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cookieDomain(r),
		Expires:  time.Unix(0, 0), // Set to a past time to expire immediately
		HttpOnly: true,
		Secure:   true,
		SameSite: SameSite,
	})
}
