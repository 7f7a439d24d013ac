package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltauth/volt/internal/domain/entity"
)

func TestDocumentRoundTrip(t *testing.T) {
	u := entity.User{
		Email:      entity.Email{Address: "a@b.com", Verified: true, VerificationToken: "tok"},
		Password:   "hash",
		Properties: map[string]any{"role": "admin", "level": 3},
	}

	doc, err := ToDocument(u.WithTime(100, 200))
	require.NoError(t, err)
	assert.NotContains(t, doc, "creationTime", "stored document must not carry timestamps")

	decoded, err := FromDocument(doc)
	require.NoError(t, err)
	assert.True(t, u.Equal(decoded))
	assert.Zero(t, decoded.CreationTime)
	assert.Zero(t, decoded.UpdateTime)
}

func TestFromDocumentRejectsGarbage(t *testing.T) {
	_, err := FromDocument("{not json")
	assert.Error(t, err)
}

// scriptedDao injects failures per operation for exercising ChangeEmail.
type scriptedDao struct {
	findErr   map[string]error
	insertErr error
	deleteErr error

	inserted []string
	deleted  []string
}

func (d *scriptedDao) Insert(_ context.Context, user entity.User) (entity.User, error) {
	if d.insertErr != nil {
		return entity.User{}, d.insertErr
	}
	d.inserted = append(d.inserted, user.Email.Address)
	return user.WithTime(1, 1), nil
}

func (d *scriptedDao) FindByEmail(_ context.Context, email string) (entity.User, error) {
	if err, ok := d.findErr[email]; ok {
		return entity.User{}, err
	}
	return entity.User{Email: entity.Email{Address: email}}, nil
}

func (d *scriptedDao) Update(_ context.Context, _ string, user entity.User) (entity.User, error) {
	return user, nil
}

func (d *scriptedDao) Delete(_ context.Context, email string) (entity.User, error) {
	if d.deleteErr != nil {
		return entity.User{}, d.deleteErr
	}
	d.deleted = append(d.deleted, email)
	return entity.User{Email: entity.Email{Address: email}}, nil
}

func (d *scriptedDao) Ping(context.Context) error { return nil }

func notFound(email string) error {
	return NewError(UserNotFound, email, "the user was not found", nil)
}

func TestChangeEmailHappyPath(t *testing.T) {
	dao := &scriptedDao{findErr: map[string]error{"new@b.com": notFound("new@b.com")}}
	user := entity.User{Email: entity.Email{Address: "new@b.com"}, Password: "pw"}

	moved, err := ChangeEmail(context.Background(), dao, "old@b.com", user)
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", moved.Email.Address)
	assert.Equal(t, []string{"new@b.com"}, dao.inserted)
	assert.Equal(t, []string{"old@b.com"}, dao.deleted)
}

func TestChangeEmailTargetTaken(t *testing.T) {
	// FindByEmail on the new address succeeds, so the address is taken.
	dao := &scriptedDao{}
	user := entity.User{Email: entity.Email{Address: "new@b.com"}}

	_, err := ChangeEmail(context.Background(), dao, "old@b.com", user)
	assert.True(t, IsKind(err, Conflict))
	assert.Empty(t, dao.inserted, "nothing may be written when the target is taken")
	assert.Empty(t, dao.deleted)
}

func TestChangeEmailPropagatesFindFailure(t *testing.T) {
	down := NewError(DatabaseDown, "new@b.com", "unreachable", nil)
	dao := &scriptedDao{findErr: map[string]error{"new@b.com": down}}

	_, err := ChangeEmail(context.Background(), dao, "old@b.com",
		entity.User{Email: entity.Email{Address: "new@b.com"}})
	assert.True(t, IsKind(err, DatabaseDown))
	assert.Empty(t, dao.inserted)
}

func TestChangeEmailPropagatesInsertFailure(t *testing.T) {
	dao := &scriptedDao{
		findErr:   map[string]error{"new@b.com": notFound("new@b.com")},
		insertErr: NewError(Conflict, "new@b.com", "the user already exists", nil),
	}

	_, err := ChangeEmail(context.Background(), dao, "old@b.com",
		entity.User{Email: entity.Email{Address: "new@b.com"}})
	assert.True(t, IsKind(err, Conflict))
	assert.Empty(t, dao.deleted, "old record must not be deleted when insert fails")
}

func TestChangeEmailDeleteFailureIsIncomplete(t *testing.T) {
	dao := &scriptedDao{
		findErr:   map[string]error{"new@b.com": notFound("new@b.com")},
		deleteErr: NewError(DatabaseDown, "old@b.com", "unreachable", nil),
	}

	moved, err := ChangeEmail(context.Background(), dao, "old@b.com",
		entity.User{Email: entity.Email{Address: "new@b.com"}})

	require.True(t, IsKind(err, EmailChangeIncomplete))
	assert.Equal(t, []string{"new@b.com"}, dao.inserted,
		"the new record exists even though the change is incomplete")
	assert.Equal(t, "new@b.com", moved.Email.Address)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "old@b.com", se.Email)
	assert.True(t, IsKind(se.Unwrap(), DatabaseDown), "the delete cause stays attached")
}
