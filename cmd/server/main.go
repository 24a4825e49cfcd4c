package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/final-deterrence/web-workshop/internal/auth"
	"github.com/final-deterrence/web-workshop/internal/config"
	"github.com/final-deterrence/web-workshop/internal/db"
	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/hasura"
	clog "github.com/final-deterrence/web-workshop/internal/log"
	"github.com/final-deterrence/web-workshop/internal/mw"
	"github.com/final-deterrence/web-workshop/internal/notify"
	"github.com/final-deterrence/web-workshop/internal/revoke"
	"github.com/final-deterrence/web-workshop/internal/server"
	"github.com/final-deterrence/web-workshop/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func openDirectory(cfg config.Config) (directory.Directory, error) {
	if cfg.DirectoryDriver == "sql" {
		gdb, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
		return db.NewStore(gdb), nil
	}
	return hasura.New(cfg.HasuraEndpoint, cfg.HasuraAdminSecret, nil), nil
}

func openSender(cfg config.Config) (notify.Sender, func(), error) {
	switch cfg.NotifyDriver {
	case "smtp":
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}), func() {}, nil
	case "nats":
		s, err := notify.NewNATSSender(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return notify.LogSender{}, func() {}, nil
	}
}

func openGuard(ctx context.Context, cfg config.Config) (revoke.Guard, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set; reset tokens stay reusable until they expire")
		return revoke.Nop{}, func() {}, nil
	}
	rdb, err := revoke.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	return revoke.NewRedisGuard(rdb), func() { _ = rdb.Close() }, nil
}

func main() {
	// 没有 .env 也可以，环境变量始终优先
	_ = godotenv.Load()

	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dir, err := openDirectory(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DirectoryDriver).Msg("directory")
	}
	sender, closeSender, err := openSender(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.NotifyDriver).Msg("notify")
	}
	defer closeSender()
	guard, closeGuard, err := openGuard(startCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer closeGuard()

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secret:       cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
		ResetTTL:     cfg.ResetTTL,
		AllowedRoles: cfg.AllowedRoles,
		DefaultRole:  cfg.DefaultRole,
	})
	limiter := mw.RateLimit(rate.Limit(cfg.AuthRatePerSec), cfg.AuthRateBurst)
	defer limiter.Stop()

	r := server.SetupRouter(cfg, server.Deps{
		Auth:    service.NewAuthService(dir, issuer, sender, guard, cfg.ResetLinkBase),
		Chat:    service.NewChatService(dir),
		Issuer:  issuer,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("directory", cfg.DirectoryDriver).Str("notify", cfg.NotifyDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
