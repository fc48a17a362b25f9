package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "coursequiz"

// Claims is the payload of an access token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users              db.UserRepository
	secret             []byte
	ttl                time.Duration
	allowAdminRegister bool
}

func NewAuthService(users db.UserRepository, secret string, ttl time.Duration, allowAdminRegister bool) *AuthService {
	return &AuthService{
		users:              users,
		secret:             []byte(secret),
		ttl:                ttl,
		allowAdminRegister: allowAdminRegister,
	}
}

// Register creates a student account.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.register(ctx, req, models.RoleStudent)
}

// RegisterAdmin creates an admin account when admin registration is enabled.
func (s *AuthService) RegisterAdmin(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if !s.allowAdminRegister {
		log.Warn("Rejected admin registration: disabled by configuration")
		return nil, fmt.Errorf("%w: admin registration is disabled", models.ErrForbidden)
	}
	return s.register(ctx, req, models.RoleAdmin)
}

func (s *AuthService) register(ctx context.Context, req *models.RegisterRequest, role models.Role) (*models.User, error) {
	log.Infof("Starting %s registration", role)

	if err := models.Validate(req); err != nil {
		log.Errorf("Registration validation failed: %v", err)
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		log.Errorf("Failed to create user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Infof("Successfully registered user %s", user.ID)
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	invalid := fmt.Errorf("%w: Incorrect email or password", models.ErrUnauthorized)

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warnf("Failed login for user %s", user.ID)
		return nil, invalid
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	log.Infof("User %s logged in", user.ID)
	return &models.TokenResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// IssueToken signs an HS256 token carrying the user id and role.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry of a token.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: could not validate credentials", models.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("%w: could not validate credentials", models.ErrUnauthorized)
	}
	return claims, nil
}
