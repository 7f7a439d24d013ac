package application

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/pkg/mailer"
	mailtpl "github.com/voltauth/volt/pkg/mailer/templates"
)

var (
	// ErrTokenNotSet means verification was attempted before any
	// verification email was sent for the user.
	ErrTokenNotSet = errors.New("verification token not set")
	// ErrTokenMismatch means the presented token does not match the stored one.
	ErrTokenMismatch = errors.New("verification token mismatch")
)

// JobPublisher queues an email job for asynchronous delivery.
// Satisfied by helpers.RabbitPublisher.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// DirectSender delivers an email synchronously. Satisfied by mailer.Mailgun.
type DirectSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// VerificationService owns the email verification token lifecycle. Delivery
// goes through the queue when a publisher is configured and falls back to
// direct sending otherwise; either may be nil for installations without email.
type VerificationService struct {
	Users     *UserService
	Publisher JobPublisher
	Sender    DirectSender
	AppName   string
	VerifyURL string
	Logger    *logrus.Logger
}

// SendEmail assigns the user a fresh verification token, persists it, and
// dispatches the verification email.
func (s *VerificationService) SendEmail(ctx context.Context, address, password string) (entity.User, error) {
	user, err := s.Users.Get(ctx, address, password)
	if err != nil {
		return entity.User{}, err
	}

	user.Email.VerificationToken = uuid.NewString()
	user.Email.Verified = false

	updated, err := s.Users.Dao.Update(ctx, "", user.WithoutTime())
	if err != nil {
		return entity.User{}, err
	}

	if err := s.dispatch(ctx, updated); err != nil {
		s.Logger.WithError(err).WithField("email", address).Error("verification email dispatch failed")
		return entity.User{}, err
	}

	s.Logger.WithField("email", address).Info("verification email sent")
	return updated, nil
}

// Verify marks the email address verified when the presented token matches.
func (s *VerificationService) Verify(ctx context.Context, address, token string) (entity.User, error) {
	user, err := s.Users.Dao.FindByEmail(ctx, address)
	if err != nil {
		return entity.User{}, err
	}

	if user.Email.VerificationToken == "" {
		return entity.User{}, ErrTokenNotSet
	}
	if user.Email.VerificationToken != token {
		s.Logger.WithField("email", address).Warn("verification token mismatch")
		return entity.User{}, ErrTokenMismatch
	}

	user.Email = user.Email.VerifiedCopy()
	return s.Users.Dao.Update(ctx, "", user.WithoutTime())
}

// Reset clears the verification state of the user.
func (s *VerificationService) Reset(ctx context.Context, address, password string) (entity.User, error) {
	user, err := s.Users.Get(ctx, address, password)
	if err != nil {
		return entity.User{}, err
	}

	user.Email.Verified = false
	user.Email.VerificationToken = ""
	return s.Users.Dao.Update(ctx, "", user.WithoutTime())
}

func (s *VerificationService) dispatch(ctx context.Context, user entity.User) error {
	data := mailtpl.EmailData{
		AppName:        s.AppName,
		RecipientEmail: user.Email.Address,
		VerifyURL:      s.verifyLink(user),
	}

	if s.Publisher != nil {
		return s.Publisher.PublishJSON(ctx, mailer.EmailJob{
			To:       user.Email.Address,
			Subject:  "Verify your email address",
			Template: mailtpl.TemplateVerification,
			Data:     mailtpl.ToMap(data),
		})
	}
	if s.Sender != nil {
		html, text, err := mailtpl.Render(mailtpl.TemplateVerification, data)
		if err != nil {
			return err
		}
		return s.Sender.Send(ctx, user.Email.Address, "Verify your email address", text, html)
	}

	s.Logger.WithField("email", user.Email.Address).Warn("no email transport configured, skipping send")
	return nil
}

func (s *VerificationService) verifyLink(user entity.User) string {
	q := url.Values{}
	q.Set("email", user.Email.Address)
	q.Set("token", user.Email.VerificationToken)
	return s.VerifyURL + "?" + q.Encode()
}
