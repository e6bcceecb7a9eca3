package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEmail is returned when email is not a valid address.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidName is returned when the display name is too long.
	ErrInvalidName = errors.New("invalid name")
)

var validate = validator.New()

type signup struct {
	Email    string `validate:"required,email,max=254"`
	Name     string `validate:"max=64"`
	Password string `validate:"required,min=6,max=72"`
}

// Service issues credentials. The chat core never calls it; it only
// consumes the tokens it mints.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a USER account and returns a token for it.
func (s *Service) Register(ctx context.Context, email, name, password string) (string, error) {
	user, err := s.create(ctx, email, name, password, store.RoleUser)
	if err != nil {
		return "", err
	}
	return s.issue(user)
}

// CreateAdmin creates the administrator account that receives user-initiated messages.
func (s *Service) CreateAdmin(ctx context.Context, email, name, password string) (*store.User, error) {
	return s.create(ctx, email, name, password, store.RoleAdmin)
}

// Login validates credentials and returns a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.issue(user)
}

// IssueToken mints a token for an existing account.
func (s *Service) IssueToken(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	return s.issue(user)
}

func (s *Service) create(ctx context.Context, email, name, password string, role store.Role) (*store.User, error) {
	req := signup{
		Email:    normalizeEmail(email),
		Name:     strings.TrimSpace(name),
		Password: password,
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			switch verrs[0].Field() {
			case "Password":
				return nil, ErrInvalidPassword
			case "Name":
				return nil, ErrInvalidName
			}
		}
		return nil, ErrInvalidEmail
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, req.Email, req.Name, hashedPassword, role)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) issue(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
