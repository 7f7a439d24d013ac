package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/config"
	"github.com/voltauth/volt/internal/container"
	"github.com/voltauth/volt/internal/domain/repository"
	dynamodbinfra "github.com/voltauth/volt/internal/infrastructure/dynamodb"
	"github.com/voltauth/volt/internal/infrastructure/memory"
	mongodbinfra "github.com/voltauth/volt/internal/infrastructure/mongodb"
	"github.com/voltauth/volt/internal/interface/middleware"
	"github.com/voltauth/volt/internal/router"
	"github.com/voltauth/volt/pkg/helpers"
	"github.com/voltauth/volt/pkg/mailer"
	"github.com/voltauth/volt/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	dao, cleanup, err := buildUsersDao(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize %s storage: %v", cfg.DBType, err)
	}
	defer cleanup()

	// Redis is optional; without it rate limiting is disabled.
	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	}

	// Email transport: queue when RabbitMQ is configured, direct Mailgun
	// otherwise. Both optional.
	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		container.SetRabbitPub(pub)
	} else if cfg.MailSendEnabled && cfg.MailgunDomain != "" {
		container.SetMailgun(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender))
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUsersDao(dao)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "password"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	reg.Use(middleware.RequestIDMiddleware())
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s (backend %s)", cfg.Port, cfg.DBType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// buildUsersDao constructs the storage adapter selected by DB_TYPE.
func buildUsersDao(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UsersDao, func(), error) {
	switch cfg.DBType {
	case "dynamodb":
		client, err := dynamodbinfra.NewClient(ctx, cfg.DynamoEndpoint, cfg.DynamoRegion,
			cfg.DynamoAccessKey, cfg.DynamoSecretKey)
		if err != nil {
			return nil, nil, err
		}
		return dynamodbinfra.NewUsersDao(client, cfg.DynamoTable, logger), func() {}, nil

	case "mongodb":
		client, err := mongodbinfra.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return mongodbinfra.NewUsersDao(collection, client, logger), cleanup, nil

	case "memory":
		logger.Warn("using in-memory storage, data will not survive a restart")
		return memory.NewUsersDao(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
}
