package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/final-deterrence/web-workshop/internal/auth"
	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/metrics"
	"github.com/final-deterrence/web-workshop/internal/notify"
	"github.com/final-deterrence/web-workshop/internal/revoke"
)

const (
	ResetSubject    = "Password Reset Request"
	resetBodyPrefix = "Click this link: "
)

// AuthService 实现登录、注册和两步式密码重置。
type AuthService struct {
	users    directory.Users
	issuer   *auth.Issuer
	sender   notify.Sender
	guard    revoke.Guard
	linkBase string
}

func NewAuthService(users directory.Users, issuer *auth.Issuer, sender notify.Sender, guard revoke.Guard, linkBase string) *AuthService {
	if guard == nil {
		guard = revoke.Nop{}
	}
	return &AuthService{users: users, issuer: issuer, sender: sender, guard: guard, linkBase: linkBase}
}

// Login 校验密码并返回会话 token。
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, err error) {
	defer func() { metrics.Auth("login", outcome(err)) }()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrMissingFields
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("login lookup: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	token, err = s.issuer.IssueSession(user.UUID)
	if err != nil {
		return "", fmt.Errorf("login sign: %w", err)
	}
	return token, nil
}

// Register 创建用户并返回会话 token。用户名唯一性由 directory 保证，冲突返回 ErrUsernameTaken。
func (s *AuthService) Register(ctx context.Context, username, password string) (token string, err error) {
	defer func() { metrics.Auth("register", outcome(err)) }()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrMissingFields
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("register hash: %w", err)
	}
	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, directory.ErrConflict) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("register create: %w", err)
	}
	token, err = s.issuer.IssueSession(user.UUID)
	if err != nil {
		return "", fmt.Errorf("register sign: %w", err)
	}
	return token, nil
}

// ResetLink 是发给用户的重置链接。
func (s *AuthService) ResetLink(token string) string {
	return s.linkBase + "?token=" + url.QueryEscape(token)
}

// RequestPasswordReset 向用户发送重置链接，用户名即收件地址。
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) (err error) {
	defer func() { metrics.Auth("reset_request", outcome(err)) }()

	username = strings.TrimSpace(username)
	if username == "" {
		return ErrMissingFields
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("reset lookup: %w", err)
	}
	token, err := s.issuer.IssueReset(user.UUID)
	if err != nil {
		return fmt.Errorf("reset sign: %w", err)
	}
	if err := s.sender.Send(ctx, user.Username, ResetSubject, resetBodyPrefix+s.ResetLink(token)); err != nil {
		return fmt.Errorf("reset email: %w", err)
	}
	return nil
}

// ApplyPasswordReset 按重置 token 为用户设置新密码。配置了防重放时每个 token 只能用一次。
func (s *AuthService) ApplyPasswordReset(ctx context.Context, token, newPassword string) (err error) {
	defer func() { metrics.Auth("reset_apply", outcome(err)) }()

	if token == "" || newPassword == "" {
		return ErrMissingFields
	}
	claims, err := s.issuer.ParseReset(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("reset hash: %w", err)
	}
	first, err := s.guard.Consume(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return fmt.Errorf("reset guard: %w", err)
	}
	if !first {
		return fmt.Errorf("%w: token already used", ErrInvalidResetToken)
	}
	n, err := s.users.UpdatePassword(ctx, claims.UUID, hash)
	if err != nil {
		return fmt.Errorf("reset update: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUsernameTaken):
		return "conflict"
	case errors.Is(err, ErrInvalidResetToken):
		return "invalid_token"
	default:
		return "error"
	}
}
