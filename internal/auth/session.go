package auth

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/store"
)

const sessionCookieName = "planwise_session"

// SessionManager issues and reads the web session cookie. The cookie only
// carries a session ID; the authoritative record (owner, expiry, client info)
// lives in the sessions table so sessions can be listed and revoked
// server-side.
type SessionManager struct {
	cfg      *config.Config
	sessions store.SessionRepository
	codec    *securecookie.SecureCookie
	secure   bool
}

func NewSessionManager(cfg *config.Config, sessions store.SessionRepository) *SessionManager {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))
	hashKey := hash[:]

	// Derive an AES-256 sized block key to avoid invalid key length errors.
	blockKey := hash[:]
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(cfg.Session.TTL.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})

	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return &SessionManager{
		cfg:      cfg,
		sessions: sessions,
		codec:    sc,
		secure:   secure,
	}
}

// Issue creates a session record for the user and sets the session cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, r *http.Request, userID int64) error {
	now := time.Now()
	sess := store.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.Session.TTL),
	}
	if ua := r.UserAgent(); ua != "" {
		sess.UserAgent = &ua
	}
	if ip := r.RemoteAddr; ip != "" {
		sess.IPAddress = &ip
	}

	if err := m.sessions.Create(r.Context(), sess); err != nil {
		return err
	}

	encoded, err := m.codec.Encode(sessionCookieName, sess.ID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear deletes the session record, if any, and removes the cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	if id, ok := m.sessionID(r); ok {
		_ = m.sessions.Delete(r.Context(), id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// Current resolves the request's cookie to a live session record. Expired
// records are treated as absent; the janitor deletes them later.
func (m *SessionManager) Current(r *http.Request) (*store.Session, bool) {
	id, ok := m.sessionID(r)
	if !ok {
		return nil, false
	}

	sess, err := m.sessions.GetByID(r.Context(), id)
	if err != nil {
		return nil, false
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

func (m *SessionManager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}

	var id string
	if err := m.codec.Decode(sessionCookieName, c.Value, &id); err != nil {
		return "", false
	}
	return id, id != ""
}
