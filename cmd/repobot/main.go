package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/bot"
	"github.com/mvidal/repobot/internal/config"
	"github.com/mvidal/repobot/internal/ops"
)

func main() {
	_ = godotenv.Load(".env")

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}
	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		} else {
			log.SetLevel(level)
		}
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.WithError(err).Fatal("preparing working directories")
	}

	b, err := bot.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("connecting to Telegram")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OpsAddr != "" {
		handler := ops.NewHandler(b.Cache(), b.Tracker(), b.Explorer(), log)
		var mw func(http.Handler) http.Handler
		if cfg.OpsUser != "" {
			mw = ops.BasicAuth(cfg.OpsUser, cfg.OpsPass)
		}
		srv := &http.Server{Addr: cfg.OpsAddr, Handler: ops.NewRouter(handler, mw)}
		go func() {
			log.WithField("addr", cfg.OpsAddr).Info("ops server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("ops server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()
	}

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Fatal("bot stopped")
	}
	log.Info("shutdown complete")
}
