// Package directory 定义服务层使用的数据接口，由 hasura（GraphQL）和 db（SQL）两个包实现。
package directory

import (
	"context"
	"errors"

	"github.com/final-deterrence/web-workshop/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Users 查询和修改用户记录。
type Users interface {
	// FindByUsername 用户不存在时返回 ErrNotFound。
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUser 保存已哈希密码的新用户并返回带 uuid 的记录，用户名已存在时返回 ErrConflict。
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	// UpdatePassword 返回受影响的行数。
	UpdatePassword(ctx context.Context, userUUID, passwordHash string) (int64, error)
}

// Chat 读取房间与消息，并写入新消息。
type Chat interface {
	JoinedRooms(ctx context.Context, userUUID string) ([]models.Room, error)
	// MessagesByRoom 按升序返回最新的 limit 条消息，并加载作者。
	MessagesByRoom(ctx context.Context, roomUUID string, limit int) ([]models.Message, error)
	MessageByUUID(ctx context.Context, messageUUID string) (*models.Message, error)
	AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
}

// Directory 是完整的数据接口。
type Directory interface {
	Users
	Chat
}
