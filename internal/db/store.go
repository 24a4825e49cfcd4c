package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 直接基于 SQL 实现 directory，用于不部署 Hasura 的场景。用户名唯一由唯一索引保证。
type Store struct {
	db *gorm.DB
}

var _ directory.Directory = (*Store)(nil)

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{UUID: uuid.NewString(), Username: username, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: username %s", directory.ErrConflict, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userUUID, passwordHash string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("uuid = ?", userUUID).Update("password", passwordHash)
	if res.Error != nil {
		return 0, fmt.Errorf("update password: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) JoinedRooms(ctx context.Context, userUUID string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Joins("JOIN user_room ON user_room.room_uuid = room.uuid").
		Where("user_room.user_uuid = ?", userUUID).
		Order("room.name").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("joined rooms: %w", err)
	}
	return rooms, nil
}

func (s *Store) MessagesByRoom(ctx context.Context, roomUUID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("room_uuid = ?", roomUUID).
		Order("created_at desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messages by room: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) MessageByUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).Preload("User").Where("uuid = ?", messageUUID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("message by uuid: %w", err)
	}
	return &msg, nil
}

func (s *Store) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	row := *msg
	if row.UUID == "" {
		row.UUID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	row.User = models.User{}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return s.MessageByUUID(ctx, row.UUID)
}
