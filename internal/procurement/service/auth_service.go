package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/config"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix = "token:refresh:"
	revokedKeyPrefix = "token:revoked:"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context) ([]entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenStore refresh token 与吊销名单
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RedisTokenStore 基于 redis 的 TokenStore
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, error) {
	return s.rdb.Get(ctx, key).Result()
}

func (s *RedisTokenStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// AuthService 认证服务
type AuthService struct {
	users  userStore
	tokens TokenStore
	jwtCfg config.JWTConfig
	now    func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(users userStore, rdb *redis.Client, cfg *config.Config) *AuthService {
	return NewAuthServiceWithStore(users, NewRedisTokenStore(rdb), cfg.JWT)
}

func NewAuthServiceWithStore(users userStore, tokens TokenStore, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{users: users, tokens: tokens, jwtCfg: jwtCfg, now: time.Now}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, *TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, apperror.NewValidation("email and password are required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, nil, err
	}
	if !user.CheckPassword(password) {
		return nil, nil, apperror.NewUnauthorized("invalid email or password")
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}
	return user, pair, nil
}

// generateTokenPair 生成Token对
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := s.now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
		"type":  "access",
		"iss":   s.jwtCfg.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.jwtCfg.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.jwtCfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtCfg.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.tokens.Set(ctx, refreshKeyPrefix+refreshJti, user.ID, s.jwtCfg.RefreshTokenExpire); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtCfg.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) parse(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid token").WithCause(err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperror.NewUnauthorized("invalid token claims")
	}
	if claims["type"] != wantType {
		return nil, apperror.NewUnauthorized("invalid token type")
	}
	return claims, nil
}

// RefreshToken 刷新Token，旧 refresh token 失效
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	claims, err := s.parse(refreshTokenString, "refresh")
	if err != nil {
		return nil, err
	}

	jti, _ := claims["jti"].(string)
	userID, err := s.tokens.Get(ctx, refreshKeyPrefix+jti)
	if err != nil || userID == "" {
		return nil, apperror.NewUnauthorized("refresh token expired or invalid")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}

	if err := s.tokens.Del(ctx, refreshKeyPrefix+jti); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 吊销当前 access token，并删除 refresh token（如提供）
func (s *AuthService) Logout(ctx context.Context, accessJti string, accessExp time.Time, refreshTokenString string) error {
	if accessJti != "" {
		ttl := accessExp.Sub(s.now())
		if ttl > 0 {
			if err := s.tokens.Set(ctx, revokedKeyPrefix+accessJti, "1", ttl); err != nil {
				return fmt.Errorf("revoke access token: %w", err)
			}
		}
	}
	if refreshTokenString == "" {
		return nil
	}
	claims, err := s.parse(refreshTokenString, "refresh")
	if err != nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	return s.tokens.Del(ctx, refreshKeyPrefix+jti)
}

// IsRevoked access token 是否已吊销
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	revoked, err := s.tokens.Exists(ctx, revokedKeyPrefix+jti)
	return err == nil && revoked
}

// GetCurrentUser 获取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User", userID)
	}
	return user, nil
}

// UserService 用户管理
type UserService struct {
	users userStore
}

func NewUserService(users userStore) *UserService {
	return &UserService{users: users}
}

// CreateUserInput 创建用户
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *UserService) List(ctx context.Context) ([]entity.User, error) {
	return s.users.FindAll(ctx)
}

func (s *UserService) Create(ctx context.Context, in *CreateUserInput) (*entity.User, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, apperror.NewFieldValidation("name", "name is required")
	case strings.TrimSpace(in.Email) == "":
		return nil, apperror.NewFieldValidation("email", "email is required")
	case in.Password == "":
		return nil, apperror.NewFieldValidation("password", "password is required")
	case !entity.ValidRole(in.Role):
		return nil, apperror.NewFieldValidation("role", "role must be ADMIN, COMPRADOR or ESTOQUISTA")
	}

	u := &entity.User{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Role:  in.Role,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, apperror.NewInternal(err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperror.NewDuplicate("User", "email", u.Email)
		}
		return nil, err
	}
	return u, nil
}
