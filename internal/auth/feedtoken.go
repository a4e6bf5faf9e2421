package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/planwise/planwise/internal/store"
)

// ErrInvalidFeedToken covers every way a presented feed token can be bad:
// malformed, unknown, revoked, or wrong secret. Callers must not distinguish.
var ErrInvalidFeedToken = errors.New("invalid feed token")

// FeedTokenIssuer mints and verifies calendar feed credentials. A token is
// presented as "<id>.<secret>"; only a bcrypt hash of the secret is stored,
// so the plaintext is shown once at creation.
type FeedTokenIssuer struct {
	tokens store.FeedTokenRepository
}

func NewFeedTokenIssuer(tokens store.FeedTokenRepository) *FeedTokenIssuer {
	return &FeedTokenIssuer{tokens: tokens}
}

// Issue creates a feed token for the user and returns the one-time plaintext
// alongside the stored record.
func (i *FeedTokenIssuer) Issue(ctx context.Context, userID int64, label string) (string, *store.FeedToken, error) {
	secret, err := randomToken(24)
	if err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	created, err := i.tokens.Create(ctx, store.FeedToken{
		UserID:     userID,
		Label:      label,
		SecretHash: string(hash),
	})
	if err != nil {
		return "", nil, err
	}

	return strconv.FormatInt(created.ID, 10) + "." + secret, created, nil
}

// Verify resolves a presented token to its stored record.
func (i *FeedTokenIssuer) Verify(ctx context.Context, token string) (*store.FeedToken, error) {
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, ErrInvalidFeedToken
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, ErrInvalidFeedToken
	}

	rec, err := i.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidFeedToken
	}
	if rec.RevokedAt != nil {
		return nil, ErrInvalidFeedToken
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidFeedToken
	}

	if err := i.tokens.TouchLastUsed(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}
