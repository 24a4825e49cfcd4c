package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/final-deterrence/web-workshop/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSSender 将 Email 发布给外部邮件服务，服务器确认后 Send 才返回。
type NATSSender struct {
	nc      *nats.Conn
	subject string
}

func NewNATSSender(url, subject string) (*NATSSender, error) {
	nc, err := nats.Connect(url,
		nats.Name("web-workshop-notify"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATSSender{nc: nc, subject: subject}, nil
}

func (s *NATSSender) Send(ctx context.Context, to, subject, body string) (err error) {
	defer func() { metrics.Email("nats", err) }()

	data, err := json.Marshal(Email{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.subject, err)
	}
	// FlushWithContext 要求 ctx 带有截止时间
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

func (s *NATSSender) Close() {
	s.nc.Close()
}
