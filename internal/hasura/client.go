// Package hasura 基于 Hasura GraphQL 接口实现 directory。
package hasura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/final-deterrence/web-workshop/internal/directory"

	graphql "github.com/hasura/go-graphql-client"
)

const adminSecretHeader = "x-hasura-admin-secret"

// Client 以管理员权限访问 Hasura，终端用户的鉴权由 Hasura 根据会话 token 完成。
type Client struct {
	gql *graphql.Client
}

var _ directory.Directory = (*Client)(nil)

func New(endpoint, adminSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	gql := graphql.NewClient(endpoint, httpClient)
	if adminSecret != "" {
		gql = gql.WithRequestModifier(func(r *http.Request) {
			r.Header.Set(adminSecretHeader, adminSecret)
		})
	}
	return &Client{gql: gql}
}

// exec 执行 GraphQL 文档并将 data 解析到 out。
func (c *Client) exec(ctx context.Context, op, query string, vars map[string]interface{}, out interface{}) error {
	raw, err := c.gql.ExecRaw(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("hasura %s: %w", op, translate(err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hasura %s: decode: %w", op, err)
	}
	return nil
}

// translate 将 Hasura 唯一约束冲突转换为 directory.ErrConflict。
func translate(err error) error {
	var gqlErrs graphql.Errors
	if !errors.As(err, &gqlErrs) {
		return err
	}
	for _, e := range gqlErrs {
		code, _ := e.Extensions["code"].(string)
		if code == "constraint-violation" || strings.Contains(e.Message, "Uniqueness violation") {
			return fmt.Errorf("%w: %s", directory.ErrConflict, e.Message)
		}
	}
	return err
}
