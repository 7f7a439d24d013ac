package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/application"
	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/pkg/response"
	"github.com/voltauth/volt/pkg/validation"
)

// UserHandler serves the /users endpoint. The target user is addressed with
// the `email` query parameter and, for guarded operations, the current
// password in the `password` request header.
type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type emailPayload struct {
	Address           string `json:"address" binding:"required,email"`
	Verified          bool   `json:"verified"`
	VerificationToken string `json:"verificationToken"`
}

type userPayload struct {
	Email      emailPayload   `json:"email" binding:"required"`
	Password   string         `json:"password" binding:"required"`
	Properties map[string]any `json:"properties"`
}

func (p userPayload) toEntity() entity.User {
	return entity.User{
		Email: entity.Email{
			Address:           p.Email.Address,
			Verified:          p.Email.Verified,
			VerificationToken: p.Email.VerificationToken,
		},
		Password:   p.Password,
		Properties: p.Properties,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, err := h.Svc.Create(c.Request.Context(), req.toEntity())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, user, "user created")
}

func (h *UserHandler) Get(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error[any](c, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	user, err := h.Svc.Get(c.Request.Context(), email, c.GetHeader("password"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, user, "user")
}

func (h *UserHandler) Update(c *gin.Context) {
	var req userPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	// The `email` query parameter carries the user's existing address; when
	// it differs from the body address the storage layer changes the key.
	existingEmail := c.Query("email")

	user, err := h.Svc.Update(c.Request.Context(), existingEmail, req.toEntity(), c.GetHeader("password"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, user, "user updated")
}

func (h *UserHandler) Delete(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error[any](c, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	user, err := h.Svc.Delete(c.Request.Context(), email, c.GetHeader("password"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, user, "user deleted")
}
