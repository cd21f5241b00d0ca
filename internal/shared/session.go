package shared

import (
	"context"
	"encoding/json"
	"fmt"
)

// FlashMessage is a notice shown once on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-visitor console state: serialized page states, the CSRF nonce,
// the gated operator and pending flashes. Mutators mark it dirty so the store knows
// whether a full write is needed.
type Session struct {
	ID string

	values  map[string]string
	admin   string
	flashes []FlashMessage

	// previousID is set by Renew and dropped from redis on commit.
	previousID string
	fresh      bool
	dirty      bool
}

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the request session or nil.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// OperatorFromContext names the admin behind the request, or "anonymous".
func OperatorFromContext(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil && sess.admin != "" {
		return sess.admin
	}
	return "anonymous"
}

// Get returns the value stored under key.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Set stores value under key. Writing an unchanged value keeps the session clean.
func (s *Session) Set(key, value string) {
	if old, ok := s.values[key]; ok && old == value {
		return
	}
	if s.values == nil {
		s.values = make(map[string]string, 4)
	}
	s.values[key] = value
	s.dirty = true
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetJSON stores v encoded as JSON under key.
func (s *Session) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("shared: encode session value %s: %w", key, err)
	}
	s.Set(key, string(raw))
	return nil
}

// GetJSON decodes the value stored under key into dest and reports whether it was present.
func (s *Session) GetJSON(key string, dest any) (bool, error) {
	raw, ok := s.values[key]
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("shared: decode session value %s: %w", key, err)
	}
	return true, nil
}

// SetAdmin records the operator who passed the admin gate.
func (s *Session) SetAdmin(name string) {
	if s.admin == name {
		return
	}
	s.admin = name
	s.dirty = true
}

// Admin returns the gated operator, if any.
func (s *Session) Admin() string {
	return s.admin
}

// AddFlash queues msg for the next render.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash dequeues the oldest pending flash.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

// Renew moves the session to a new id. The old redis entry is removed on commit.
func (s *Session) Renew() {
	if s.previousID == "" && !s.fresh {
		s.previousID = s.ID
	}
	s.ID = newSessionID()
	s.dirty = true
}
