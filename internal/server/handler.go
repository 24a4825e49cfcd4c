package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/final-deterrence/web-workshop/internal/auth"
	"github.com/final-deterrence/web-workshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthAPI 是 handler 用到的 service.AuthService 方法。
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (string, error)
	RequestPasswordReset(ctx context.Context, username string) error
	ApplyPasswordReset(ctx context.Context, token, newPassword string) error
}

// ChatAPI 是 handler 用到的 service.ChatService 方法。
type ChatAPI interface {
	JoinedRooms(ctx context.Context, userUUID string) ([]service.RoomDTO, error)
	RoomMessages(ctx context.Context, userUUID, roomUUID string, limit int) ([]service.MessageDTO, error)
	PostMessage(ctx context.Context, userUUID, roomUUID, content string, replyTo *string) (*service.MessageDTO, error)
}

// Handler 封装基于服务层的 HTTP 处理器。
type Handler struct {
	auth AuthAPI
	chat ChatAPI
}

func NewHandler(authSvc AuthAPI, chatSvc ChatAPI) *Handler {
	return &Handler{auth: authSvc, chat: chatSvc}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidReply):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotMember):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail 写出错误响应；未预期的错误只记日志，不返回给客户端。
func fail(c *gin.Context, op string, err error) {
	status := statusOf(err)
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrInvalidResetToken):
		log.Warn().Err(err).Str("op", op).Msg("rejected reset token")
		msg = service.ErrInvalidResetToken.Error()
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// bind 解析 JSON 请求体，解析失败按缺少字段处理。
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": service.ErrMissingFields.Error()})
		return false
	}
	return true
}

// Login 处理登录请求，返回 {"token": ...}。
func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Register(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	token, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, "register", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Username); err != nil {
		fail(c, "change-password/request", err)
		return
	}
	c.String(http.StatusOK, "Reset email sent")
}

func (h *Handler) ApplyPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.auth.ApplyPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		fail(c, "change-password/action", err)
		return
	}
	c.String(http.StatusOK, "Password updated successfully")
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.chat.JoinedRooms(c.Request.Context(), auth.GetUserUUID(c))
	if err != nil {
		fail(c, "list rooms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// ListMessages 返回房间最新的消息，按时间升序。
func (h *Handler) ListMessages(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}
	msgs, err := h.chat.RoomMessages(c.Request.Context(), auth.GetUserUUID(c), c.Param("uuid"), limit)
	if err != nil {
		fail(c, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req struct {
		Content     string  `json:"content"`
		ReplyToUUID *string `json:"reply_to_message_uuid"`
	}
	if !bind(c, &req) {
		return
	}
	msg, err := h.chat.PostMessage(c.Request.Context(), auth.GetUserUUID(c), c.Param("uuid"), req.Content, req.ReplyToUUID)
	if err != nil {
		fail(c, "post message", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
