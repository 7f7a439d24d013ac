package memory

import (
	"context"
	"sync"
	"time"

	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/internal/domain/repository"
)

// UsersDao is an in-process implementation of repository.UsersDao backed by a
// map. Meant for local runs and tests; updates are serialized by the mutex,
// so the version race of the remote adapters cannot occur here.
type UsersDao struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

func NewUsersDao() *UsersDao {
	return &UsersDao{users: make(map[string]entity.User)}
}

func (d *UsersDao) Insert(_ context.Context, user entity.User) (entity.User, error) {
	email := user.Email.Address

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[email]; ok {
		return entity.User{}, repository.NewError(repository.Conflict, email,
			"the user already exists", nil)
	}

	now := time.Now().UnixMilli()
	stored := user.WithTime(now, now)
	d.users[email] = stored
	return stored, nil
}

func (d *UsersDao) FindByEmail(_ context.Context, email string) (entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[email]
	if !ok {
		return entity.User{}, repository.NewError(repository.UserNotFound, email,
			"the user was not found", nil)
	}
	return user, nil
}

func (d *UsersDao) Update(ctx context.Context, existingEmail string, user entity.User) (entity.User, error) {
	if existingEmail != "" && existingEmail != user.Email.Address {
		return repository.ChangeEmail(ctx, d, existingEmail, user)
	}

	email := user.Email.Address

	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.users[email]
	if !ok {
		return entity.User{}, repository.NewError(repository.UserNotFound, email,
			"the user was not found", nil)
	}

	// Keep update times strictly increasing even at millisecond granularity.
	now := time.Now().UnixMilli()
	if now <= current.UpdateTime {
		now = current.UpdateTime + 1
	}

	updated := user.WithTime(current.CreationTime, now)
	d.users[email] = updated
	return updated, nil
}

func (d *UsersDao) Delete(_ context.Context, email string) (entity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[email]
	if !ok {
		return entity.User{}, repository.NewError(repository.UserNotFound, email,
			"the user to delete was not found", nil)
	}
	delete(d.users, email)
	return user, nil
}

func (d *UsersDao) Ping(context.Context) error { return nil }

var _ repository.UsersDao = (*UsersDao)(nil)
