package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"trailwise/internal/common"
	"trailwise/internal/common/security"
	"trailwise/internal/domain/model"
	"trailwise/internal/domain/repository"
	"trailwise/internal/platform/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type AuthService struct {
	userRepo repository.UserRepository
	issuer   *security.TokenIssuer
	mailer   mail.Mailer
	validate *validator.Validate
	resetTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, issuer *security.TokenIssuer, mailer mail.Mailer, resetTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		issuer:   issuer,
		mailer:   mailer,
		validate: validator.New(),
		resetTTL: resetTTL,
	}
}

type SignupRequest struct {
	Name            string `json:"name" validate:"required,min=3,max=20"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type AuthResponse struct {
	User  *model.User `json:"user,omitempty"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := s.checkStruct(req); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          normalizeEmail(req.Email),
		Role:           role,
		HashedPassword: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo returns common.ErrDuplicateEmail on the unique constraint
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Same error whether the email is unknown or the password is
			// wrong, so callers cannot enumerate accounts.
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token}, nil
}

// ForgotPassword stores a hashed single-use reset token on the account and
// mails the plaintext to the owner. The plaintext never touches storage or
// logs; once this call returns it exists only in the outbound email.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := s.checkStruct(req); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("there is no user with that email address: %w", common.ErrNotFound)
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	plaintext, tokenHash, err := security.NewResetToken()
	if err != nil {
		return err
	}

	// Persist before sending: if the email fails the token is still valid,
	// if persistence fails no token was ever handed out.
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(s.resetTTL.Minutes())),
		Body: "Forgot your password? Submit a PATCH request with your new password to " +
			"/api/v1/users/reset-password with this token: " + plaintext +
			"\nIf you didn't forget your password, please ignore this email.",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("reset email to %s failed: %v", user.Email, err)
	}
	return nil
}

// ResetPassword consumes a reset token: it replaces the password, stamps
// passwordChangedAt (invalidating every previously issued JWT) and clears the
// reset fields, then logs the user straight in with a fresh token.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResponse, error) {
	if err := s.checkStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByResetToken(ctx, security.HashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("failed to find user by reset token: %w", err)
	}

	if err := s.changePassword(ctx, user.ID, req.Password); err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token}, nil
}

// UpdatePassword changes the password of a logged-in user after verifying the
// current one, and returns a fresh token since all earlier ones just died.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, req UpdatePasswordRequest) (*AuthResponse, error) {
	if err := s.checkStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.CurrentPassword, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.changePassword(ctx, user.ID, req.Password); err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token}, nil
}

func (s *AuthService) changePassword(ctx context.Context, userID, password string) error {
	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, hashedPassword, time.Now())
}

// checkStruct runs validator tags and converts failures into the field-level
// ValidationError surfaced to clients.
func (s *AuthService) checkStruct(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return common.ErrBadRequest
	}
	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return &common.ValidationError{Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "PasswordConfirm":
		return "password_confirm"
	case "CurrentPassword":
		return "current_password"
	default:
		return strings.ToLower(fe.Field())
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "passwords are not the same"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
