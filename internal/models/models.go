package models

import "time"

// 表名与 Hasura schema 保持一致，SQL 与 GraphQL 两种实现可以共用同一个数据库。

type User struct {
	UUID         string    `gorm:"primaryKey;size:36" json:"uuid"`
	Username     string    `gorm:"uniqueIndex;size:255;not null" json:"username"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "user" }

type Room struct {
	UUID      string    `gorm:"primaryKey;size:36" json:"uuid"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Intro     string    `gorm:"type:text" json:"intro"`
	CreatedAt time.Time `json:"created_at"`
}

func (Room) TableName() string { return "room" }

type UserRoom struct {
	UserUUID string `gorm:"primaryKey;size:36"`
	RoomUUID string `gorm:"primaryKey;size:36"`
	Room     Room   `gorm:"foreignKey:RoomUUID;references:UUID"`
}

func (UserRoom) TableName() string { return "user_room" }

type Message struct {
	UUID        string    `gorm:"primaryKey;size:36" json:"uuid"`
	RoomUUID    string    `gorm:"index:idx_message_room_created;size:36;not null" json:"room_uuid"`
	UserUUID    string    `gorm:"index;size:36;not null" json:"user_uuid"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	ReplyToUUID *string   `gorm:"column:reply_to_message_uuid;size:36;index" json:"reply_to_message_uuid,omitempty"`
	CreatedAt   time.Time `gorm:"index:idx_message_room_created" json:"created_at"`
	User        User      `gorm:"foreignKey:UserUUID;references:UUID" json:"user"`
}

func (Message) TableName() string { return "message" }
