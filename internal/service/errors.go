package service

import "errors"

// 业务错误，由 handler 映射为 HTTP 状态码。
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrNotMember          = errors.New("not a member of this room")
	ErrInvalidReply       = errors.New("reply target not found in this room")
	ErrEmptyMessage       = errors.New("message content is empty")
)
