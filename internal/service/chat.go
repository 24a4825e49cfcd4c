package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/models"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// ChatService 提供登录用户可见的房间与消息。
type ChatService struct {
	chat directory.Chat
}

func NewChatService(chat directory.Chat) *ChatService {
	return &ChatService{chat: chat}
}

type UserDTO struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// ReplyPreview 是被回复消息的预览，从旧式回复头解析出的预览没有 UUID。
type ReplyPreview struct {
	UUID     string `json:"uuid,omitempty"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

type MessageDTO struct {
	UUID      string        `json:"uuid"`
	RoomUUID  string        `json:"room_uuid"`
	User      UserDTO       `json:"user"`
	Content   string        `json:"content"`
	ReplyTo   *ReplyPreview `json:"reply_to,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type RoomDTO struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Intro string `json:"intro"`
}

func (s *ChatService) JoinedRooms(ctx context.Context, userUUID string) ([]RoomDTO, error) {
	rooms, err := s.chat.JoinedRooms(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("joined rooms: %w", err)
	}
	out := make([]RoomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomDTO{UUID: r.UUID, Name: r.Name, Intro: r.Intro})
	}
	return out, nil
}

func (s *ChatService) requireMember(ctx context.Context, userUUID, roomUUID string) error {
	rooms, err := s.chat.JoinedRooms(ctx, userUUID)
	if err != nil {
		return fmt.Errorf("membership: %w", err)
	}
	for _, r := range rooms {
		if r.UUID == roomUUID {
			return nil
		}
	}
	return ErrNotMember
}

// RoomMessages 返回房间最新的消息（按时间升序），并附带被回复消息的预览。
func (s *ChatService) RoomMessages(ctx context.Context, userUUID, roomUUID string, limit int) ([]MessageDTO, error) {
	if limit <= 0 || limit > maxMessageLimit {
		limit = defaultMessageLimit
	}
	if err := s.requireMember(ctx, userUUID, roomUUID); err != nil {
		return nil, err
	}
	msgs, err := s.chat.MessagesByRoom(ctx, roomUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	byUUID := make(map[string]*models.Message, len(msgs))
	for i := range msgs {
		byUUID[msgs[i].UUID] = &msgs[i]
	}

	out := make([]MessageDTO, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		dto := toDTO(m)
		switch {
		case m.ReplyToUUID != nil:
			target, ok := byUUID[*m.ReplyToUUID]
			if !ok {
				// 被引用的消息不在当前页
				target, err = s.chat.MessageByUUID(ctx, *m.ReplyToUUID)
				if err != nil && !errors.Is(err, directory.ErrNotFound) {
					return nil, fmt.Errorf("reply target: %w", err)
				}
			}
			if target != nil {
				dto.ReplyTo = preview(target)
			} else {
				dto.ReplyTo = &ReplyPreview{UUID: *m.ReplyToUUID}
			}
		default:
			if q, body, ok := models.ParseLegacyReply(m.Content); ok {
				dto.ReplyTo = &ReplyPreview{Username: q.Username, Content: q.Content}
				dto.Content = body
			}
		}
		out = append(out, dto)
	}
	return out, nil
}

// PostMessage 在用户已加入的房间发送消息，回复的目标必须属于同一房间。
func (s *ChatService) PostMessage(ctx context.Context, userUUID, roomUUID, content string, replyTo *string) (*MessageDTO, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.requireMember(ctx, userUUID, roomUUID); err != nil {
		return nil, err
	}

	var target *models.Message
	if replyTo != nil && *replyTo != "" {
		t, err := s.chat.MessageByUUID(ctx, *replyTo)
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInvalidReply
		}
		if err != nil {
			return nil, fmt.Errorf("reply target: %w", err)
		}
		if t.RoomUUID != roomUUID {
			return nil, ErrInvalidReply
		}
		target = t
	} else {
		replyTo = nil
	}

	saved, err := s.chat.AddMessage(ctx, &models.Message{
		RoomUUID:    roomUUID,
		UserUUID:    userUUID,
		Content:     content,
		ReplyToUUID: replyTo,
	})
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	dto := toDTO(saved)
	if target != nil {
		dto.ReplyTo = preview(target)
	}
	return &dto, nil
}

func toDTO(m *models.Message) MessageDTO {
	return MessageDTO{
		UUID:      m.UUID,
		RoomUUID:  m.RoomUUID,
		User:      UserDTO{UUID: m.UserUUID, Username: m.User.Username},
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func preview(m *models.Message) *ReplyPreview {
	content := m.Content
	if _, body, ok := models.ParseLegacyReply(content); ok {
		content = body
	}
	return &ReplyPreview{UUID: m.UUID, Username: m.User.Username, Content: content}
}
