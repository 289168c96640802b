// Package auth mints the bearer tokens the external billing endpoint
// requires on click notifications.
package auth

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/common/metrics"
)

// issuerClaim identifies this service to the receiving endpoint. The value
// is fixed by the integration contract.
const issuerClaim = "ristorino"

// expirySafetyMargin keeps a token from being handed out so close to its
// exp that it dies in flight.
const expirySafetyMargin = 5 * time.Second

var errEmptySecret = stderrors.New("signing secret is empty")

// Minter builds HS256 tokens and caches the latest one until it is within
// the safety margin of expiring. The zero value is not usable; use NewMinter.
type Minter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu          sync.Mutex
	cachedToken string
	cachedExp   time.Time
}

// NewMinter creates a Minter with the given signing secret and token TTL.
func NewMinter(secret string, ttl time.Duration) *Minter {
	return &Minter{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewMinterWithClock is NewMinter with an injectable clock for tests.
func NewMinterWithClock(secret string, ttl time.Duration, now func() time.Time) *Minter {
	return &Minter{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

// Token returns a signed token that is good for at least the safety margin.
// The cached token is reused while it has lifetime left; otherwise a fresh
// one is minted and replaces it. Safe for concurrent use.
func (m *Minter) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cachedToken != "" && now.Before(m.cachedExp) {
		return m.cachedToken, nil
	}

	token, exp, err := m.mint(now)
	if err != nil {
		return "", err
	}

	m.cachedToken = token
	m.cachedExp = exp.Add(-expirySafetyMargin)
	metrics.TokensMinted.Inc()
	return token, nil
}

// Mint signs a fresh token without touching the cache.
func (m *Minter) Mint() (string, error) {
	token, _, err := m.mint(m.now())
	return token, err
}

func (m *Minter) mint(now time.Time) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.NewTokenSigningFailedError(
			errEmptySecret,
		)
	}

	exp := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"registrador": issuerClaim,
		"iat":         now.Unix(),
		"exp":         exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.NewTokenSigningFailedError(err)
	}

	return signed, exp, nil
}
