package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/store"
)

const stateCookieName = "planwise_oauth_state"

// Service runs the OIDC login flow and gates authenticated routes.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	sessions *SessionManager
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
	secure   bool
	log      zerolog.Logger
}

// NewService discovers the OIDC provider. The context bounds the discovery
// request only; it is not retained.
func NewService(ctx context.Context, cfg *config.Config, st *store.Store, sessions *SessionManager, log zerolog.Logger) (*Service, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDC.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	return &Service{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDC.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  strings.TrimSuffix(cfg.BaseURL, "/") + cfg.OIDC.RedirectPath,
			Scopes:       []string{oidc.ScopeOpenID, "email"},
		},
		secure: strings.HasPrefix(cfg.BaseURL, "https://"),
		log:    log,
	}, nil
}

// BeginOAuth starts the authorization flow with a fresh state nonce.
func (s *Service) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken(16)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback validates the state, exchanges the code, verifies the
// ID token, upserts the user and starts a session.
func (s *Service) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, Secure: s.secure})

	token, err := s.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn().Err(err).Msg("oauth code exchange failed")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("id token verification failed")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := s.store.Users.UpsertOAuthUser(ctx, idToken.Subject, claims.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("upsert oauth user failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.sessions.Issue(w, r, user.ID); err != nil {
		s.log.Error().Err(err).Msg("session issue failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout ends the current session.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// RequireSession resolves the session cookie to a user and stores both on the
// request context. Requests without a live session get a 401.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Current(r)
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		user, err := s.store.Users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		if err := s.store.Sessions.TouchLastSeen(r.Context(), sess.ID); err != nil {
			s.log.Debug().Err(err).Msg("touch session failed")
		}

		ctx := WithUser(r.Context(), user)
		ctx = WithSessionID(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
