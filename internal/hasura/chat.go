package hasura

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/models"
)

const messageFields = `
    uuid
    room_uuid
    user_uuid
    content
    reply_to_message_uuid
    created_at
    user {
      uuid
      username
    }`

const (
	getJoinedRooms = `query getJoinedRooms($user_uuid: uuid!) {
  user_room(where: {user_uuid: {_eq: $user_uuid}}) {
    room {
      uuid
      name
      intro
    }
  }
}`

	getMessagesByRoom = `query getMessagesByRoom($room_uuid: uuid!, $limit: Int!) {
  message(where: {room_uuid: {_eq: $room_uuid}}, order_by: {created_at: desc}, limit: $limit) {` + messageFields + `
  }
}`

	getMessageByUUID = `query getMessageByUuid($uuid: uuid!) {
  message_by_pk(uuid: $uuid) {` + messageFields + `
  }
}`

	addMessage = `mutation addMessage($user_uuid: uuid!, $room_uuid: uuid!, $content: String!, $reply_to_message_uuid: uuid) {
  insert_message_one(object: {user_uuid: $user_uuid, room_uuid: $room_uuid, content: $content, reply_to_message_uuid: $reply_to_message_uuid}) {` + messageFields + `
  }
}`
)

// timestamp 同时解析 timestamptz 和不带时区的 timestamp 列，后者按 UTC 处理。
type timestamp struct{ time.Time }

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("hasura: unrecognized timestamp %q", s)
}

type messageRow struct {
	UUID        string    `json:"uuid"`
	RoomUUID    string    `json:"room_uuid"`
	UserUUID    string    `json:"user_uuid"`
	Content     string    `json:"content"`
	ReplyToUUID *string   `json:"reply_to_message_uuid"`
	CreatedAt   timestamp `json:"created_at"`
	User        struct {
		UUID     string `json:"uuid"`
		Username string `json:"username"`
	} `json:"user"`
}

func (r messageRow) model() models.Message {
	return models.Message{
		UUID:        r.UUID,
		RoomUUID:    r.RoomUUID,
		UserUUID:    r.UserUUID,
		Content:     r.Content,
		ReplyToUUID: r.ReplyToUUID,
		CreatedAt:   r.CreatedAt.Time,
		User:        models.User{UUID: r.User.UUID, Username: r.User.Username},
	}
}

func (c *Client) JoinedRooms(ctx context.Context, userUUID string) ([]models.Room, error) {
	var out struct {
		UserRoom []struct {
			Room models.Room `json:"room"`
		} `json:"user_room"`
	}
	vars := map[string]interface{}{"user_uuid": userUUID}
	if err := c.exec(ctx, "getJoinedRooms", getJoinedRooms, vars, &out); err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(out.UserRoom))
	for _, ur := range out.UserRoom {
		rooms = append(rooms, ur.Room)
	}
	return rooms, nil
}

func (c *Client) MessagesByRoom(ctx context.Context, roomUUID string, limit int) ([]models.Message, error) {
	var out struct {
		Message []messageRow `json:"message"`
	}
	vars := map[string]interface{}{"room_uuid": roomUUID, "limit": limit}
	if err := c.exec(ctx, "getMessagesByRoom", getMessagesByRoom, vars, &out); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, len(out.Message))
	// 接口按时间倒序返回，调用方需要升序
	for i, row := range out.Message {
		msgs[len(msgs)-1-i] = row.model()
	}
	return msgs, nil
}

func (c *Client) MessageByUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	var out struct {
		MessageByPK *messageRow `json:"message_by_pk"`
	}
	vars := map[string]interface{}{"uuid": messageUUID}
	if err := c.exec(ctx, "getMessageByUuid", getMessageByUUID, vars, &out); err != nil {
		return nil, err
	}
	if out.MessageByPK == nil {
		return nil, directory.ErrNotFound
	}
	m := out.MessageByPK.model()
	return &m, nil
}

func (c *Client) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	var out struct {
		InsertMessageOne *messageRow `json:"insert_message_one"`
	}
	vars := map[string]interface{}{
		"user_uuid":             msg.UserUUID,
		"room_uuid":             msg.RoomUUID,
		"content":               msg.Content,
		"reply_to_message_uuid": msg.ReplyToUUID,
	}
	if err := c.exec(ctx, "addMessage", addMessage, vars, &out); err != nil {
		return nil, err
	}
	if out.InsertMessageOne == nil {
		return nil, errors.New("hasura addMessage: no row returned")
	}
	m := out.InsertMessageOne.model()
	return &m, nil
}
