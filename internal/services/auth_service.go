package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/auth"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
)

// LoginResult is returned on a successful login
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NewUser describes an account to create
type NewUser struct {
	Username string
	Password string
	Name     string
	Role     string
	Phone    string
}

// AuthService checks credentials and hands out bearer tokens
type AuthService struct {
	users  repositories.UserRepository
	issuer *auth.Issuer
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Login verifies username and password. Unknown users and wrong passwords
// get the same answer.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperrors.InvalidRequest("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthorized("invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid username or password")
	}
	if !user.Active {
		return nil, apperrors.Forbidden("subscription inactive")
	}

	token, err := s.issuer.Issue(*user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// CreateUser hashes the password and stores an active account
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" || len(in.Password) < 6 {
		return nil, apperrors.InvalidRequest("username and a password of at least 6 characters are required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleOperator
	}
	if role != models.RoleOperator && role != models.RoleAdmin {
		return nil, apperrors.InvalidRequest("unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Username: strings.TrimSpace(in.Username),
		Name:     in.Name,
		Password: string(hash),
		Role:     role,
		Phone:    in.Phone,
		Active:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
