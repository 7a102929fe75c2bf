package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/app"
	"github.com/iliyamo/show-directory/internal/config"
	"github.com/iliyamo/show-directory/internal/database"
	"github.com/iliyamo/show-directory/internal/geo"
	"github.com/iliyamo/show-directory/internal/handler"
	"github.com/iliyamo/show-directory/internal/logger"
	"github.com/iliyamo/show-directory/internal/notify"
	"github.com/iliyamo/show-directory/internal/queue"
	"github.com/iliyamo/show-directory/internal/repository"
	"github.com/iliyamo/show-directory/internal/repository/memory"
	"github.com/iliyamo/show-directory/internal/service"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Ready:     map[string]handler.Check{},
		Log:       zl,
	}

	switch cfg.DB.Driver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DB)
		if err != nil {
			zl.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate database", zap.Error(err))
		}
		deps.Shows = repository.NewShowRepo(db)
		deps.Users = repository.NewUserRepo(db)
		tokens := repository.NewTokenRepo(db)
		deps.Tokens = tokens
		deps.Requests = repository.NewRequestRepo(db)
		deps.Ready["database"] = db.PingContext
		go purgeTokens(ctx, tokens, zl)
	case config.DriverMemory:
		store := memory.New()
		deps.Shows, deps.Users, deps.Tokens, deps.Requests = store.Shows(), store.Users(), store.Tokens(), store.Requests()
		zl.Warn("using in-memory storage, data is lost on restart")
	}

	if rdb, err := config.NewRedisClient(config.LoadRedisConfig()); err != nil {
		zl.Warn("redis unavailable, cache, rate limit and notification ledger disabled", zap.Error(err))
	} else {
		deps.Redis = rdb
		defer func(c *redis.Client) { _ = c.Close() }(rdb)
	}

	if cfg.Geocoder.URL != "" {
		deps.Geocoder = geo.NewNominatim(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
	}

	deps.Transport = mailTransport(ctx, cfg, zl)

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		created, err := deps.Users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Auth.BcryptCost)
		if err != nil {
			zl.Fatal("ensure admin account", zap.Error(err))
		}
		zl.Info("admin account ready", zap.String("username", cfg.Admin.Username), zap.Bool("created", created))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registry = reg

	e := app.New(deps)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("db_driver", cfg.DB.Driver), zap.String("mail_mode", cfg.Mail.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

// mailTransport builds the notification transport selected by MAIL_MODE.
// In amqp mode the process also drains the queue into SMTP when an SMTP
// host is configured.
func mailTransport(ctx context.Context, cfg config.Config, zl *zap.Logger) notify.Transport {
	var smtp *service.SMTPMailer
	if cfg.Mail.SMTPHost != "" {
		m, err := service.NewSMTPMailer(cfg.Mail, zl)
		if err != nil {
			zl.Fatal("smtp mailer", zap.Error(err))
		}
		smtp = m
	}

	switch cfg.Mail.Mode {
	case config.MailSMTP:
		return smtp
	case config.MailAMQP:
		if smtp != nil {
			go func() {
				err := queue.StartEmailConsumer(ctx, cfg.Mail.RabbitMQURL, smtp, cfg.Notify.SendTimeout, zl)
				if err != nil && !errors.Is(err, context.Canceled) {
					zl.Error("email consumer stopped", zap.Error(err))
				}
			}()
		} else {
			zl.Warn("no SMTP_HOST, queued emails are left for another consumer")
		}
		return service.NewAMQPMailer(cfg.Mail.RabbitMQURL, zl)
	default:
		zl.Info("mail disabled, notification dispatch answers 503")
		return nil
	}
}

// purgeTokens drops expired refresh tokens once a day.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, zl *zap.Logger) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				zl.Warn("purge refresh tokens", zap.Error(err))
				continue
			}
			zl.Info("purged refresh tokens", zap.Int64("rows", n))
		}
	}
}
