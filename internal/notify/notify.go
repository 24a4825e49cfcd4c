// Package notify 负责发送邮件，Sender 直接接收收件人、主题和正文。
package notify

import (
	"context"

	"github.com/final-deterrence/web-workshop/internal/metrics"

	"github.com/rs/zerolog/log"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Email 是发布到 NATS 的消息体。
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LogSender 只把邮件写入日志，供开发环境使用。
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email (log driver)")
	log.Debug().Str("to", to).Str("body", body).Msg("email body")
	metrics.Email("log", nil)
	return nil
}
