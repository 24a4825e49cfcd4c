package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HasuraNamespace 是 Hasura JWT 模式读取角色的 claim 键。
const HasuraNamespace = "https://hasura.io/jwt/claims"

// ResetAudience 标记密码重置 token，使其不能当作会话 token 使用。
const ResetAudience = "password-reset"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

type HasuraClaims struct {
	AllowedRoles []string `json:"x-hasura-allowed-roles"`
	DefaultRole  string   `json:"x-hasura-default-role"`
	UserID       string   `json:"x-hasura-user-id,omitempty"`
}

// SessionClaims 是登录和注册签发的声明，GraphQL 层按其中的 Hasura 部分鉴权。
type SessionClaims struct {
	UUID   string       `json:"uuid"`
	Hasura HasuraClaims `json:"https://hasura.io/jwt/claims"`
	jwt.RegisteredClaims
}

// ResetClaims 授权 UUID 修改一次密码，ID 即防重放使用的 jti。
type ResetClaims struct {
	UUID string `json:"uuid"`
	jwt.RegisteredClaims
}

type IssuerConfig struct {
	Secret       string
	SessionTTL   time.Duration
	ResetTTL     time.Duration
	AllowedRoles []string
	DefaultRole  string
}

// Issuer 签发并校验 HS256 会话 token 与重置 token。
type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// WithClock 返回一个使用 now 作为时钟的副本。
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{cfg: i.cfg, now: now}
}

func (i *Issuer) ResetTTL() time.Duration { return i.cfg.ResetTTL }

func (i *Issuer) IssueSession(userUUID string) (string, error) {
	now := i.now()
	claims := SessionClaims{
		UUID: userUUID,
		Hasura: HasuraClaims{
			AllowedRoles: append([]string(nil), i.cfg.AllowedRoles...),
			DefaultRole:  i.cfg.DefaultRole,
			UserID:       userUUID,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.SessionTTL)),
		},
	}
	return i.sign(claims)
}

func (i *Issuer) IssueReset(userUUID string) (string, error) {
	now := i.now()
	claims := ResetClaims{
		UUID: userUUID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userUUID,
			Audience:  jwt.ClaimStrings{ResetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.ResetTTL)),
		},
	}
	return i.sign(claims)
}

func (i *Issuer) ParseSession(tokenStr string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := i.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	for _, aud := range claims.Audience {
		if aud == ResetAudience {
			return nil, ErrWrongPurpose
		}
	}
	if claims.UUID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (i *Issuer) ParseReset(tokenStr string) (*ResetClaims, error) {
	var claims ResetClaims
	if err := i.parse(tokenStr, &claims, jwt.WithAudience(ResetAudience)); err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, ErrWrongPurpose
		}
		return nil, err
	}
	if claims.UUID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(i.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
