package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/application"
	mailtpl "github.com/voltauth/volt/pkg/mailer/templates"
	"github.com/voltauth/volt/pkg/response"
)

// VerificationHandler serves the /verify endpoints used in the email
// verification flow.
type VerificationHandler struct {
	Svc    *application.VerificationService
	Logger *logrus.Logger
}

func NewVerificationHandler(svc *application.VerificationService, logger *logrus.Logger) *VerificationHandler {
	return &VerificationHandler{Svc: svc, Logger: logger}
}

// SendEmail issues a new verification token and emails the verification link.
func (h *VerificationHandler) SendEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error[any](c, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	user, err := h.Svc.SendEmail(c.Request.Context(), email, c.GetHeader("password"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, user, "verification email sent")
}

// Verify checks the token from the emailed link. Browser flows pass
// response_type=html and are redirected to the success page.
func (h *VerificationHandler) Verify(c *gin.Context) {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		response.Error[any](c, http.StatusBadRequest, "email and token query parameters are required", nil)
		return
	}

	user, err := h.Svc.Verify(c.Request.Context(), email, token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	if c.Query("response_type") == "html" {
		c.Redirect(http.StatusSeeOther, "/api/verify/success")
		return
	}
	response.Success(c, http.StatusOK, user, "email verified")
}

// Reset clears the verification state of the user.
func (h *VerificationHandler) Reset(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error[any](c, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	user, err := h.Svc.Reset(c.Request.Context(), email, c.GetHeader("password"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, user, "verification status reset")
}

// Success renders the HTML page the browser lands on after verification.
func (h *VerificationHandler) Success(c *gin.Context) {
	page, err := mailtpl.RenderPage(mailtpl.TemplateSuccess, mailtpl.EmailData{AppName: h.Svc.AppName})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
