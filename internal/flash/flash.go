// Package flash carries one-shot operator notices across the redirect that
// follows a save.
package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Message levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
)

// CookieName is the flash cookie.
const CookieName = "menueditor_flash"

// maxMessages bounds the queue so the cookie stays small.
const maxMessages = 8

var errTampered = errors.New("flash cookie signature mismatch")

// Message is one notice.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Store keeps pending messages in a signed cookie.
type Store struct {
	key    []byte
	path   string
	secure bool
}

// NewStore creates a store signing cookies with key, scoped to path.
func NewStore(key, path string, secure bool) *Store {
	if path == "" {
		path = "/"
	}
	return &Store{key: []byte(key), path: path, secure: secure}
}

// Add queues messages for the next Pop. Messages added by earlier responses
// are kept; calling Add twice on one response keeps only the last call's.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, msgs ...Message) {
	pending, _ := s.read(r)
	pending = append(pending, msgs...)
	if len(pending) > maxMessages {
		pending = pending[len(pending)-maxMessages:]
	}
	s.write(w, pending)
}

// Pop returns and clears pending messages. A tampered cookie yields nothing.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	pending, err := s.read(r)
	if err != nil || len(pending) == 0 {
		if _, cerr := r.Cookie(CookieName); cerr == nil {
			s.clear(w)
		}
		return nil
	}
	s.clear(w)
	return pending
}

func (s *Store) read(r *http.Request) ([]Message, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil, errTampered
	}
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(want, s.sign(payload)) {
		return nil, errTampered
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	var out []Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) write(w http.ResponseWriter, msgs []Message) {
	raw, _ := json.Marshal(msgs)
	payload := base64.RawURLEncoding.EncodeToString(raw)
	value := payload + "." + base64.RawURLEncoding.EncodeToString(s.sign(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     s.path,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     s.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
