package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Endy02/microservice/auth"
	"github.com/Endy02/microservice/blog"
	"github.com/Endy02/microservice/config"
	"github.com/Endy02/microservice/mailer"
	"github.com/Endy02/microservice/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := server.NewLogger(cfg.Logging, "microservice")

	if err := run(cfg, logger, flag.Args()); err != nil {
		logger.Error("fatal: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *server.ZerologAdapter, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	articles := blog.NewArticlesRepository(db)

	codec := auth.NewStateTokenCodec(
		[]byte(cfg.Auth.SigningKey),
		time.Duration(cfg.Auth.StateTokenExpiration)*time.Second,
	)
	tokens := auth.NewTokenService(cfg.Auth, logger.Named("tokens"))

	revoked, closeRevoked, err := buildRevocationStore(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("revocation store: %w", err)
	}
	defer closeRevoked()

	sessions := auth.NewSessionManager(repo.Users(), tokens, revoked).
		WithLogger(logger.Named("sessions"))

	notifier, err := mailer.New(buildMailSender(cfg.Mail), mailer.WithLogger(logger.Named("mailer")))
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	// createsuperuser runs against the same wiring and exits.
	if len(args) > 0 && args[0] == "createsuperuser" {
		return createSuperuser(ctx, repo, args[1:])
	}

	register := auth.NewRegisterUserHandler(repo, codec).
		WithNotifier(notifier).
		WithDomain(cfg.Auth.Domain).
		WithLogger(logger.Named("register"))
	activate := auth.NewActivateAccountHandler(repo, codec).
		WithLogger(logger.Named("activate"))
	forgot := auth.NewInitializePasswordResetHandler(repo, codec).
		WithNotifier(notifier).
		WithDomain(cfg.Auth.Domain).
		WithLogger(logger.Named("forgot-password"))
	reset := auth.NewFinalizePasswordResetHandler(repo, codec).
		WithLogger(logger.Named("reset-password"))

	srv := server.New(cfg, logger, server.Dependencies{
		Sessions: sessions,
		Users:    repo.Users(),
		Register: register,
		Activate: activate,
		Forgot:   forgot,
		Reset:    reset,
		Articles: articles,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown()
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN())
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	models := []any{
		(*auth.User)(nil),
		(*blog.Article)(nil),
		(*blog.ArticleImage)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return nil, err
		}
	}

	return db, nil
}

func buildRevocationStore(ctx context.Context, cfg config.RedisConfig, logger *server.ZerologAdapter) (auth.RevocationStore, func(), error) {
	if !cfg.Enabled {
		logger.Info("token revocation uses the in-memory store")
		return auth.NewMemoryRevocationStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	logger.Info("token revocation uses redis at %s", cfg.Addr())
	return auth.NewRedisRevocationStore(client), func() { client.Close() }, nil
}

// buildMailSender returns nil in log-only mode, which makes the mailer
// fall back to its log sender.
func buildMailSender(cfg config.MailConfig) mailer.Sender {
	if cfg.LogOnly {
		return nil
	}

	var smtpAuth smtp.Auth
	if cfg.Username != "" {
		smtpAuth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return mailer.NewSMTPSender(cfg.Addr(), cfg.From, smtpAuth)
}

func createSuperuser(ctx context.Context, repo auth.RepositoryManager, args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	email := fs.String("email", "", "superuser email")
	username := fs.String("username", "", "superuser username")
	password := fs.String("password", "", "superuser password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := repo.Users().CreateSuperuser(ctx, *email, *username, *password)
	if err != nil {
		return err
	}

	fmt.Printf("superuser %s created (%s)\n", user.Username, user.ID)
	return nil
}
