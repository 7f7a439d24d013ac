package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/internal/domain/repository"
	"github.com/voltauth/volt/pkg/crypto"
)

var (
	// ErrInvalidCredentials means the password header did not match the
	// stored password for the requested user.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService sits between the REST layer and the storage contract. It owns
// the business rules the storage layer must not know about: server-side
// password hashing and the current-password check on read/update/delete.
type UserService struct {
	Dao               repository.UsersDao
	Hash              crypto.HashService
	ServerSideHash    bool
	PasswordHeaderOff bool
	Logger            *logrus.Logger
}

func NewUserService(dao repository.UsersDao, hash crypto.HashService, serverSideHash, passwordHeaderOff bool, logger *logrus.Logger) *UserService {
	return &UserService{
		Dao:               dao,
		Hash:              hash,
		ServerSideHash:    serverSideHash,
		PasswordHeaderOff: passwordHeaderOff,
		Logger:            logger,
	}
}

// Create inserts a new user, hashing the password first when server-side
// hashing is enabled.
func (s *UserService) Create(ctx context.Context, user entity.User) (entity.User, error) {
	if s.ServerSideHash {
		hashed, err := s.Hash.Hash(user.Password)
		if err != nil {
			return entity.User{}, err
		}
		user.Password = hashed
	}

	created, err := s.Dao.Insert(ctx, user)
	if err != nil {
		return entity.User{}, err
	}
	s.Logger.WithField("email", created.Email.Address).Info("user created")
	return created, nil
}

// Get returns the stored user after checking the supplied password.
func (s *UserService) Get(ctx context.Context, email, password string) (entity.User, error) {
	user, err := s.Dao.FindByEmail(ctx, email)
	if err != nil {
		return entity.User{}, err
	}
	if err := s.checkPassword(user, password); err != nil {
		return entity.User{}, err
	}
	return user, nil
}

// Update replaces the stored user. existingEmail may be empty when the
// address is unchanged; when it differs from the user's address the storage
// layer runs the email-change protocol. The password header is checked
// against the record as it exists before the update.
func (s *UserService) Update(ctx context.Context, existingEmail string, user entity.User, password string) (entity.User, error) {
	lookup := existingEmail
	if lookup == "" {
		lookup = user.Email.Address
	}

	current, err := s.Dao.FindByEmail(ctx, lookup)
	if err != nil {
		return entity.User{}, err
	}
	if err := s.checkPassword(current, password); err != nil {
		return entity.User{}, err
	}

	if s.ServerSideHash && user.Password != current.Password {
		hashed, err := s.Hash.Hash(user.Password)
		if err != nil {
			return entity.User{}, err
		}
		user.Password = hashed
	}

	updated, err := s.Dao.Update(ctx, existingEmail, user)
	if err != nil {
		return entity.User{}, err
	}
	s.Logger.WithField("email", updated.Email.Address).Info("user updated")
	return updated, nil
}

// Delete removes the user after checking the supplied password and returns
// the record as it existed before deletion.
func (s *UserService) Delete(ctx context.Context, email, password string) (entity.User, error) {
	user, err := s.Dao.FindByEmail(ctx, email)
	if err != nil {
		return entity.User{}, err
	}
	if err := s.checkPassword(user, password); err != nil {
		return entity.User{}, err
	}

	deleted, err := s.Dao.Delete(ctx, email)
	if err != nil {
		return entity.User{}, err
	}
	s.Logger.WithField("email", email).Info("user deleted")
	return deleted, nil
}

func (s *UserService) checkPassword(user entity.User, password string) error {
	if s.PasswordHeaderOff {
		return nil
	}
	if !s.Hash.Verify(user.Password, password) {
		s.Logger.WithField("email", user.Email.Address).Warn("password header mismatch")
		return ErrInvalidCredentials
	}
	return nil
}
