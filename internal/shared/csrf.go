package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

const (
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for script-initiated uploads.
	CSRFHeader = "X-CSRF-Token"

	csrfNonceKey = "csrf_nonce"
)

var (
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	errNoSession         = errors.New("shared: session missing")
)

// CSRFManager issues tokens of the form nonce.mac, where mac signs the session id and
// a per-session nonce. Only the nonce is kept in the session.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager signing with secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken returns the session's token, creating its nonce on first use.
func (m *CSRFManager) EnsureToken(_ context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", errNoSession
	}
	nonce := sess.Get(csrfNonceKey)
	if nonce == "" {
		var err error
		if nonce, err = newNonce(); err != nil {
			return "", err
		}
		sess.Set(csrfNonceKey, nonce)
	}
	return nonce + "." + m.sign(sess.ID, nonce), nil
}

// RotateToken discards the current nonce so the next EnsureToken issues a new token.
func (m *CSRFManager) RotateToken(sess *Session) {
	if sess != nil {
		sess.Delete(csrfNonceKey)
	}
}

// VerifyToken checks token against the session id and stored nonce.
func (m *CSRFManager) VerifyToken(_ context.Context, sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	stored := sess.Get(csrfNonceKey)
	if stored == "" {
		return ErrCSRFTokenMissing
	}
	nonce, mac, ok := strings.Cut(token, ".")
	if !ok || nonce != stored {
		return ErrCSRFTokenMismatch
	}
	if !hmac.Equal([]byte(mac), []byte(m.sign(sess.ID, nonce))) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) sign(sessionID, nonce string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sessionID))
	mac.Write([]byte{0})
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func newNonce() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
