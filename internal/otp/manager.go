// Package otp manages the one-time passcodes used to verify email ownership.
// Records live in redis keyed by email, so a plain SET atomically replaces
// any prior live code and the at-most-one-live-record-per-email invariant
// holds under any interleaving of concurrent issues.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CodeTTL is the lifetime of an issued code.
const CodeTTL = 10 * time.Minute

var (
	// ErrNotFound indicates no live record matches the email and code.
	ErrNotFound = errors.New("otp not found")
	// ErrExpired indicates the code matched but its lifetime has passed. An
	// expired match must never be treated as valid.
	ErrExpired = errors.New("otp expired")
)

// Record is the stored shape of a live code.
type Record struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Delivery hands an issued code to an external notifier. Delivery and
// issuance are decoupled: a delivery failure never rolls back the record.
type Delivery interface {
	Deliver(ctx context.Context, email, code string) error
}

// Manager issues, verifies, and consumes one-time codes.
type Manager struct {
	client   *redis.Client
	delivery Delivery
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager constructs a code manager backed by the given redis client.
func NewManager(client *redis.Client, delivery Delivery, logger zerolog.Logger) *Manager {
	return &Manager{
		client:   client,
		delivery: delivery,
		ttl:      CodeTTL,
		logger:   logger.With().Str("component", "otp_manager").Logger(),
		now:      time.Now,
	}
}

// Issue generates a fresh six-digit code for the email, replacing any prior
// live record, and hands it to the delivery provider. The returned code is
// what was stored, whether or not delivery succeeded.
func (m *Manager) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	record := Record{Code: code, ExpiresAt: m.now().Add(m.ttl)}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode otp record: %w", err)
	}

	// Expiry is enforced lazily against ExpiresAt at verification time; the
	// redis TTL only evicts inert expired records eventually.
	if err := m.client.Set(ctx, recordKey(email), payload, m.ttl+time.Minute).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp record: %w", err)
	}

	if m.delivery != nil {
		if err := m.delivery.Deliver(ctx, email, code); err != nil {
			m.logger.Warn().Err(err).Str("email", email).Msg("otp delivery failed, record kept")
		}
	}

	return code, nil
}

// Verify checks the code against the live record for the email. On success
// the record is consumed: a code verifies at most once.
func (m *Manager) Verify(ctx context.Context, email, code string) error {
	key := recordKey(email)

	payload, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read otp record: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return ErrNotFound
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return ErrNotFound
	}

	if m.now().After(record.ExpiresAt) {
		return ErrExpired
	}

	// Single use. If a concurrent verify consumed the record first, the
	// delete count is zero and this caller loses.
	deleted, err := m.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to consume otp record: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

func recordKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
