package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "backoffice:session:"

// SessionManager loads and stores sessions in redis under an opaque cookie id.
// Sessions slide: every committed request pushes the expiry ttl into the future.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

type sessionRecord struct {
	Values  map[string]string `json:"values,omitempty"`
	Admin   string            `json:"admin,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager returns a store writing cookies named cookieName.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the session named by the request cookie. Missing, malformed or expired
// ids start a fresh session under a new id.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil || !validSessionID(cookie.Value) {
		return freshSession(), nil
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+cookie.Value).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return freshSession(), nil
	case err != nil:
		return nil, fmt.Errorf("shared: load session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	return &Session{
		ID:      cookie.Value,
		values:  rec.Values,
		admin:   rec.Admin,
		flashes: rec.Flashes,
	}, nil
}

// Commit writes a changed session, or only refreshes the expiry of an unchanged one,
// and sets the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	key := sessionKeyPrefix + sess.ID

	if sess.dirty || sess.fresh {
		raw, err := json.Marshal(sessionRecord{Values: sess.values, Admin: sess.admin, Flashes: sess.flashes})
		if err != nil {
			return fmt.Errorf("shared: encode session: %w", err)
		}
		pipe := sm.client.TxPipeline()
		pipe.Set(ctx, key, raw, sm.ttl)
		if sess.previousID != "" {
			pipe.Del(ctx, sessionKeyPrefix+sess.previousID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("shared: store session: %w", err)
		}
		sess.dirty, sess.fresh, sess.previousID = false, false, ""
	} else if err := sm.client.Expire(ctx, key, sm.ttl).Err(); err != nil {
		return fmt.Errorf("shared: refresh session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Reload replaces the value under key with the copy last committed to redis. A request
// that waited on a mutation lock calls it to pick up what the previous holder wrote.
func (sm *SessionManager) Reload(ctx context.Context, sess *Session, key string) error {
	if sess == nil || sess.fresh {
		return nil
	}
	raw, err := sm.client.Get(ctx, sessionKeyPrefix+sess.ID).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("shared: reload session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("shared: decode session: %w", err)
	}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	if v, ok := rec.Values[key]; ok {
		sess.values[key] = v
	} else {
		delete(sess.values, key)
	}
	return nil
}

func freshSession() *Session {
	return &Session{ID: newSessionID(), values: make(map[string]string), fresh: true}
}

func validSessionID(id string) bool {
	if _, err := uuid.Parse(id); err == nil {
		return true
	}
	_, err := hex.DecodeString(id)
	return err == nil && len(id) == 64
}

func newSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
