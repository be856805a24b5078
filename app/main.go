package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/commentservice"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/mailservice"
	"github.com/sushihentaime/threadline/internal/postservice"
	"github.com/sushihentaime/threadline/internal/rbac"
	"github.com/sushihentaime/threadline/internal/searchservice"
	"github.com/sushihentaime/threadline/internal/userservice"
	"github.com/sushihentaime/threadline/internal/wellnessservice"
)

type application struct {
	config          *Config
	logger          *slog.Logger
	db              *sql.DB
	authorizer      *rbac.Authorizer
	userService     *userservice.UserService
	postService     *postservice.PostService
	commentService  *commentservice.CommentService
	searchService   *searchservice.SearchService
	wellnessService *wellnessservice.WellnessService
	mailService     *mailservice.MailService
	broker          *common.MessageBroker
	cache           *common.Cache
	metrics         *metrics
}

// newApplication wires the services around an open database and broker. The caller owns both.
func newApplication(cfg *Config, logger *slog.Logger, db *sql.DB, broker *common.MessageBroker) (*application, error) {
	var auditor audit.Logger = audit.NewNoopLogger()
	if cfg.AuditLogging {
		auditor = audit.NewDBLogger(db, logger)
	}

	sessions := userservice.NewSessionManager(cfg.JWTSecret, userservice.SessionTokenTime)

	mailService, err := mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, cfg.AppURL, logger)
	if err != nil {
		return nil, err
	}

	return &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		authorizer:      rbac.NewAuthorizer(sessions),
		userService:     userservice.NewUserService(db, broker, sessions, auditor, logger),
		postService:     postservice.NewPostService(db, auditor),
		commentService:  commentservice.NewCommentService(db, auditor),
		searchService:   searchservice.NewSearchService(db),
		wellnessService: wellnessservice.NewWellnessService(db, auditor),
		mailService:     mailService,
		broker:          broker,
		cache:           common.NewCache(10*time.Minute, 20*time.Minute),
		metrics:         newMetrics(db),
	}, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.OpenDB(context.Background(), common.DBConfig{
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Name:         cfg.DBName,
		MaxOpenConns: 25,
		MaxIdleConns: 25,
		MaxIdleTime:  15 * time.Minute,
	})
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupUserExchange(broker)
	if err != nil {
		logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app, err := newApplication(cfg, logger, db, broker)
	if err != nil {
		logger.Error("failed to initialize the application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.mailService.Close()

	app.mailService.SendWelcomeEmail()
	app.mailService.SendPasswordResetEmail()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
