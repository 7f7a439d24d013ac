package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/application"
	"github.com/voltauth/volt/internal/domain/repository"
	"github.com/voltauth/volt/pkg/response"
)

// writeError maps application and storage failures onto HTTP statuses:
// Conflict→409, UserNotFound→404, RequestRejected→500, DatabaseDown→503.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	if errors.Is(err, application.ErrInvalidCredentials) {
		response.Error[any](c, http.StatusUnauthorized,
			"unable to validate user with provided credentials", nil)
		return
	}
	if errors.Is(err, application.ErrTokenNotSet) || errors.Is(err, application.ErrTokenMismatch) {
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var storageErr *repository.Error
	if errors.As(err, &storageErr) {
		switch storageErr.Kind {
		case repository.Conflict:
			response.Error[any](c, http.StatusConflict,
				"user "+storageErr.Email+" already exists in the database", nil)
		case repository.UserNotFound:
			response.Error[any](c, http.StatusNotFound,
				"user "+storageErr.Email+" not found in the database", nil)
		case repository.DatabaseDown:
			response.Error[any](c, http.StatusServiceUnavailable,
				"database is currently unavailable, please try again later", nil)
		case repository.EmailChangeIncomplete:
			logger.WithError(err).Error("email change left records under both addresses")
			response.Error[any](c, http.StatusInternalServerError,
				"the email change did not complete, the old record may still exist", nil)
		default:
			response.Error[any](c, http.StatusInternalServerError,
				"the database rejected the request, check your data and try again", nil)
		}
		return
	}

	logger.WithError(err).Error("unhandled error")
	response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
}
