package hasura

import (
	"context"
	"errors"

	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/models"
)

const (
	getUsersByUsername = `query getUsersByUsername($username: String!) {
  user(where: {username: {_eq: $username}}) {
    uuid
    username
    password
  }
}`

	addUser = `mutation addUser($username: String!, $password: String!) {
  insert_user_one(object: {username: $username, password: $password}) {
    uuid
    username
  }
}`

	updateUserPassword = `mutation updateUserPassword($uuid: uuid!, $password: String!) {
  update_user(where: {uuid: {_eq: $uuid}}, _set: {password: $password}) {
    affected_rows
  }
}`
)

type userRow struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r userRow) model() *models.User {
	return &models.User{UUID: r.UUID, Username: r.Username, PasswordHash: r.Password}
}

func (c *Client) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var out struct {
		User []userRow `json:"user"`
	}
	vars := map[string]interface{}{"username": username}
	if err := c.exec(ctx, "getUsersByUsername", getUsersByUsername, vars, &out); err != nil {
		return nil, err
	}
	if len(out.User) == 0 {
		return nil, directory.ErrNotFound
	}
	return out.User[0].model(), nil
}

func (c *Client) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	var out struct {
		InsertUserOne *userRow `json:"insert_user_one"`
	}
	vars := map[string]interface{}{"username": username, "password": passwordHash}
	if err := c.exec(ctx, "addUser", addUser, vars, &out); err != nil {
		return nil, err
	}
	if out.InsertUserOne == nil || out.InsertUserOne.UUID == "" {
		return nil, errors.New("hasura addUser: no row returned")
	}
	u := out.InsertUserOne.model()
	u.PasswordHash = passwordHash
	return u, nil
}

func (c *Client) UpdatePassword(ctx context.Context, userUUID, passwordHash string) (int64, error) {
	var out struct {
		UpdateUser *struct {
			AffectedRows int64 `json:"affected_rows"`
		} `json:"update_user"`
	}
	vars := map[string]interface{}{"uuid": userUUID, "password": passwordHash}
	if err := c.exec(ctx, "updateUserPassword", updateUserPassword, vars, &out); err != nil {
		return 0, err
	}
	if out.UpdateUser == nil {
		return 0, nil
	}
	return out.UpdateUser.AffectedRows, nil
}
