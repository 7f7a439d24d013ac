package router

import (
	"github.com/gin-gonic/gin"

	"github.com/voltauth/volt/internal/application"
	"github.com/voltauth/volt/internal/container"
	handlers "github.com/voltauth/volt/internal/interface/http"
	"github.com/voltauth/volt/internal/interface/middleware"
	"github.com/voltauth/volt/internal/router/modules"
	"github.com/voltauth/volt/pkg/crypto"
)

// InitModules builds the application services from the container singletons
// and registers all feature modules with the router registry. Called once
// during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	dao := container.GetUsersDao()

	hash := crypto.NewHashService(crypto.Algorithm(cfg.HashAlgorithm))
	userSvc := application.NewUserService(dao, hash, cfg.ServerSideHash, !cfg.PasswordHeaderCheck, logger)

	verifySvc := &application.VerificationService{
		Users:     userSvc,
		AppName:   cfg.AppName,
		VerifyURL: cfg.VerifyEmailURL,
		Logger:    logger,
	}
	if p := container.GetRabbitPub(); p != nil {
		verifySvc.Publisher = p
	}
	if mg := container.GetMailgun(); mg != nil {
		verifySvc.Sender = mg
	}

	auth := authMiddleware(cfg.AuthMode)

	r.Add(modules.NewUserModule(handlers.NewUserHandler(userSvc, logger), auth))
	r.Add(modules.NewVerificationModule(handlers.NewVerificationHandler(verifySvc, logger), auth))
	r.Add(modules.NewHealthModule(dao))
}

func authMiddleware(mode string) gin.HandlerFunc {
	cfg := container.GetConfig()
	switch mode {
	case "oauth":
		return middleware.BearerAuth([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience)
	case "none":
		return nil
	default:
		return middleware.BasicAuth(cfg.AuthKeys())
	}
}
