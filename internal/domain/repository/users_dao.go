package repository

import (
	"context"
	"encoding/json"

	"github.com/voltauth/volt/internal/domain/entity"
)

// UsersDao defines the storage operations for the user aggregate. The two
// remote implementations (DynamoDB and MongoDB) translate these calls into
// native conditional writes; all of them report failures as *Error values
// from this package.
//
// Operations may be invoked concurrently. The only cross-call guarantee is
// the optimistic-concurrency check on Update: of two updates derived from the
// same read, exactly one wins and the other fails with Conflict.
type UsersDao interface {
	// Insert atomically creates the user if no record with the same email
	// address exists, otherwise fails with Conflict. The returned user
	// carries fresh creation/update timestamps.
	Insert(ctx context.Context, user entity.User) (entity.User, error)

	// FindByEmail returns the user stored under the given address, or fails
	// with UserNotFound. Pure read.
	FindByEmail(ctx context.Context, email string) (entity.User, error)

	// Update replaces the stored user. When existingEmail is non-empty and
	// differs from user.Email.Address the call performs the email-change
	// protocol (see ChangeEmail); otherwise it is an in-place conditional
	// write fenced by the stored version token. The returned user keeps its
	// original creation time and carries a new update time.
	Update(ctx context.Context, existingEmail string, user entity.User) (entity.User, error)

	// Delete removes the record, failing with UserNotFound if it does not
	// exist at delete time. Returns the record as it was before deletion.
	Delete(ctx context.Context, email string) (entity.User, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// ToDocument serializes the user payload for storage. Timestamps are cleared
// first: the stored document is the pure User projection, the record's
// sibling attributes own the times.
func ToDocument(user entity.User) (string, error) {
	b, err := json.Marshal(user.WithoutTime())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromDocument deserializes a stored user document.
func FromDocument(document string) (entity.User, error) {
	var user entity.User
	if err := json.Unmarshal([]byte(document), &user); err != nil {
		return entity.User{}, err
	}
	return user, nil
}

// ChangeEmail moves a user to a new primary key. There is no atomic
// cross-key operation on either backend, so this is a compensating sequence
// built from the contract primitives, in an order that fails toward
// duplicate-but-recoverable data rather than data loss:
//
//  1. the new address must not be taken (otherwise Conflict),
//  2. insert the user under the new address,
//  3. delete the record under the old address.
//
// A failure after step 2 leaves records under both addresses and is reported
// as EmailChangeIncomplete against the old address. Nothing is retried here.
func ChangeEmail(ctx context.Context, dao UsersDao, existingEmail string, user entity.User) (entity.User, error) {
	newEmail := user.Email.Address

	_, err := dao.FindByEmail(ctx, newEmail)
	if err == nil {
		return entity.User{}, NewError(Conflict, newEmail,
			"a user with the new email address already exists", nil)
	}
	if !IsKind(err, UserNotFound) {
		return entity.User{}, err
	}

	inserted, err := dao.Insert(ctx, user)
	if err != nil {
		return entity.User{}, err
	}

	if _, err := dao.Delete(ctx, existingEmail); err != nil {
		return inserted, NewError(EmailChangeIncomplete, existingEmail,
			"inserted under the new address but failed to delete the old record", err)
	}

	return inserted, nil
}
