package service

import (
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 12
	maxPasswordBytes  = 72 // bcrypt input limit
)

type RegisterInput struct {
	Email          string
	Password       string
	AdminSetupCode string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Session is a signed session token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *dto.UserResponse
}

type AuthService interface {
	Register(ctx context.Context, in *RegisterInput) (*dto.UserResponse, error)
	Login(ctx context.Context, in *LoginInput) (*Session, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*model.User, error)
}

type authServiceImpl struct {
	userRepo    repository.UserRepository
	sessionRepo repository.AuthSessionRepository
	secret      []byte
	ttl         time.Duration
	adminEmail  string
	setupCode   string
	now         func() time.Time
	log         *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.AuthSessionRepository,
	cfg config.Auth,
	log *zap.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		secret:      []byte(cfg.JWTSecret),
		ttl:         cfg.SessionTTL,
		adminEmail:  NormalizeEmail(cfg.AdminEmail),
		setupCode:   cfg.AdminSetupCode,
		now:         time.Now,
		log:         log,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authServiceImpl) Register(ctx context.Context, in *RegisterInput) (*dto.UserResponse, error) {
	email := NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: please enter a valid email address", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	role := model.UserRoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		exists, err := s.userRepo.AdminExists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check admin: %w", err)
		}
		if exists {
			return nil, ErrAdminExists
		}
		if s.setupCode == "" || subtle.ConstantTimeCompare([]byte(in.AdminSetupCode), []byte(s.setupCode)) != 1 {
			s.log.Warn("admin registration without a valid setup code", zap.String("email", email))
			return nil, ErrAdminSetupRequired
		}
		role = model.UserRoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("store user in db: %w", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return NewUserResponse(user), nil
}

func (s *authServiceImpl) Login(ctx context.Context, in *LoginInput) (*Session, error) {
	if len(s.secret) == 0 {
		return nil, ErrAuthMisconfigured
	}

	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(in.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	tokenID := uuid.NewString()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	if err := s.sessionRepo.Create(ctx, &model.AuthSession{
		UserID:    user.ID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		IPAddress: truncate(in.IPAddress, 64),
		UserAgent: truncate(in.UserAgent, 512),
	}); err != nil {
		return nil, fmt.Errorf("store auth session: %w", err)
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      NewUserResponse(user),
	}, nil
}

// Logout invalidates the session behind token. Unknown or expired tokens are
// not an error.
func (s *authServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessionRepo.Invalidate(ctx, claims.ID, s.now()); err != nil {
		return fmt.Errorf("invalidate auth session: %w", err)
	}
	return nil
}

func (s *authServiceImpl) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.sessionRepo.FindActive(ctx, claims.ID, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("find auth session: %w", err)
	}
	if claims.Subject != strconv.FormatUint(uint64(session.UserID), 10) {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *authServiceImpl) parse(token string) (*jwt.RegisteredClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrAuthMisconfigured
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("session token has no id")
	}
	return claims, nil
}

func NewUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
