package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/auth"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// demoAccount describes one pre-verified demo identity.
type demoAccount struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

var demoAccounts = []demoAccount{
	{FirstName: "Admin", LastName: "User", Email: "admin@testschool.com", Password: "admin123", Role: models.RoleAdmin},
	{FirstName: "Student", LastName: "User", Email: "student@testschool.com", Password: "student123", Role: models.RoleStudent},
	{FirstName: "Supervisor", LastName: "User", Email: "supervisor@testschool.com", Password: "supervisor123", Role: models.RoleSupervisor},
}

// SeedService provisions the demo accounts used in development environments.
type SeedService interface {
	SeedUsers(ctx context.Context, token string) (int, error)
}

type seedService struct {
	users   repository.UserRepository
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		users:   users,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedUsers creates any missing demo accounts, already verified. Existing
// accounts are left untouched, so seeding is idempotent.
func (s *seedService) SeedUsers(ctx context.Context, token string) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	created := 0
	for _, account := range demoAccounts {
		if _, err := s.users.GetByEmail(ctx, account.Email); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		hash, err := auth.HashPassword(account.Password)
		if err != nil {
			return created, err
		}

		user := models.User{
			FirstName:    account.FirstName,
			LastName:     account.LastName,
			Email:        account.Email,
			PasswordHash: hash,
			Role:         account.Role,
			IsVerified:   true,
		}

		if err := s.users.Create(ctx, &user); err != nil {
			return created, err
		}
		created++
	}

	s.logger.Info().Int("created", created).Msg("demo accounts seeded")

	return created, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	provided := strings.TrimSpace(token)
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
