package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/auth"
	"github.com/skillcert/skillcert-api/internal/dto"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/otp"
	"github.com/skillcert/skillcert-api/internal/repository"
)

var (
	// ErrEmailTaken indicates a registration for an address that already has
	// an account.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials is shared by unknown-email and wrong-password
	// logins so responses never reveal whether an address is registered.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified indicates the account exists but its email has not
	// been verified yet.
	ErrAccountUnverified = errors.New("email not verified")
	// ErrUserNotFound indicates no account exists for the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyVerified indicates a resend for an account that no longer
	// needs one.
	ErrAlreadyVerified = errors.New("user is already verified")
)

// AuthService owns the identity credential lifecycle: registration with
// hashed passwords, email verification through one-time codes, and token
// issuance on login.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.RegisterResponse, error)
	VerifyOTP(ctx context.Context, payload dto.VerifyOTPRequest) error
	ResendOTP(ctx context.Context, payload dto.ResendOTPRequest) error
	Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	users     repository.UserRepository
	otp       *otp.Manager
	tokens    *auth.TokenIssuer
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, otpManager *otp.Manager, tokens *auth.TokenIssuer, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		otp:       otpManager,
		tokens:    tokens,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/skillcert/skillcert-api/internal/service/auth"),
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.RegisterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.RegisterResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.RegisterResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RegisterResponse{}, err
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return dto.RegisterResponse{}, err
	}

	role := payload.Role
	if role == "" {
		role = models.RoleStudent
	}

	// Names end up on issued certificates; strip any markup.
	user := models.User{
		FirstName:    strings.TrimSpace(s.sanitizer.Sanitize(payload.FirstName)),
		LastName:     strings.TrimSpace(s.sanitizer.Sanitize(payload.LastName)),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   false,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		// Two concurrent registrations can both pass the lookup above; the
		// unique index catches the loser and it still gets a conflict, not a
		// server error.
		if isDuplicateKey(err) {
			return dto.RegisterResponse{}, ErrEmailTaken
		}
		return dto.RegisterResponse{}, err
	}

	span.SetAttributes(attribute.Int("user.id", int(user.ID)))

	// Issuance failure is not fatal: the account exists and the code can be
	// re-requested through resend.
	if _, err := s.otp.Issue(ctx, email); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to issue verification code")
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user registered")

	return dto.RegisterResponse{UserID: user.ID}, nil
}

// isDuplicateKey recognises a unique-index violation both through gorm's
// translated error and through the raw driver message, since not every
// connection enables translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "duplicate key") || strings.Contains(message, "UNIQUE constraint")
}

func (s *authService) VerifyOTP(ctx context.Context, payload dto.VerifyOTPRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	if err := s.otp.Verify(ctx, email, payload.OTP); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return err
		}
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("email verified")

	return nil
}

func (s *authService) ResendOTP(ctx context.Context, payload dto.ResendOTPRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	// Issue replaces any live record, so a superseded code can never be used
	// even before it expires.
	if _, err := s.otp.Issue(ctx, email); err != nil {
		return err
	}

	return nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.LoginResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if !user.IsVerified {
		span.SetStatus(codes.Error, "account unverified")
		return dto.LoginResponse{}, ErrAccountUnverified
	}

	if !auth.CheckPassword(payload.Password, user.PasswordHash) {
		span.SetStatus(codes.Error, "credential mismatch")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.MintAccessToken(user)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	refreshToken, err := s.tokens.MintRefreshToken(user)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("login succeeded")

	return dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto.NewUserResponse(user),
	}, nil
}
