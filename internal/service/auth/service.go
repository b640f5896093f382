package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("invalid token")
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 60 * time.Minute

// Service registers accounts and issues HS256 bearer tokens.
type Service struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds an auth service. A non-positive ttl falls back to DefaultTokenTTL.
func NewService(users storage.UserStore, secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Register stores a new account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, creds auth.Credentials) (auth.User, error) {
	login := strings.TrimSpace(creds.Name())
	if login == "" || creds.Password == "" {
		return auth.User{}, ErrCredentialsRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, login, string(hash))
	if errors.Is(err, storage.ErrConflict) {
		return auth.User{}, ErrUserExists
	}
	if err != nil {
		return auth.User{}, err
	}

	log.Info().Int64("user_id", user.ID).Str("login", login).Msg("[auth] user registered")
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, creds auth.Credentials) (auth.TokenResponse, error) {
	login := strings.TrimSpace(creds.Name())
	if login == "" || creds.Password == "" {
		return auth.TokenResponse{}, ErrInvalidCredentials
	}

	user, err := s.users.FindUserByLogin(ctx, login)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return auth.TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return auth.TokenResponse{}, err
	}
	return auth.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// IssueToken signs a token whose subject is the user id.
func (s *Service) IssueToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the user id it was issued for.
func (s *Service) ParseToken(raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return 0, ErrTokenExpired
	}
	if err != nil {
		return 0, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}
