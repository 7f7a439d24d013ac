package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/internal/domain/repository"
)

// exceededTimeLimit is the server error code for write errors in the
// ExceededTimeLimit category; mongo.IsTimeout does not see per-write errors.
const exceededTimeLimit = 50

// userRecord is the stored document. The email address is the collection's
// _id, so uniqueness comes from the primary-key index; version is the
// optimistic-concurrency fencing token.
type userRecord struct {
	Email        string `bson:"_id"`
	ID           string `bson:"id"`
	Version      string `bson:"version"`
	CreationTime int64  `bson:"creation_time"`
	UpdateTime   int64  `bson:"update_time"`
	Document     string `bson:"document"`
}

// UsersDao implements repository.UsersDao on a MongoDB collection using
// unique-index inserts and version-filtered updates.
type UsersDao struct {
	collection Collection
	pinger     Pinger
	logger     *logrus.Logger
}

func NewUsersDao(collection Collection, pinger Pinger, logger *logrus.Logger) *UsersDao {
	return &UsersDao{collection: collection, pinger: pinger, logger: logger}
}

func (d *UsersDao) Insert(ctx context.Context, user entity.User) (entity.User, error) {
	email := user.Email.Address

	document, err := repository.ToDocument(user)
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the user could not be serialized", err)
	}

	now := time.Now().UnixMilli()
	_, err = d.collection.InsertOne(ctx, userRecord{
		Email:        email,
		ID:           uuid.NewString(),
		Version:      uuid.NewString(),
		CreationTime: now,
		UpdateTime:   now,
		Document:     document,
	})
	if err != nil {
		return entity.User{}, d.translate(err, email, "insert")
	}

	return user.WithTime(now, now), nil
}

func (d *UsersDao) FindByEmail(ctx context.Context, email string) (entity.User, error) {
	record, err := d.getRecord(ctx, email)
	if err != nil {
		return entity.User{}, err
	}
	return d.toUser(record)
}

func (d *UsersDao) Update(ctx context.Context, existingEmail string, user entity.User) (entity.User, error) {
	if existingEmail != "" && existingEmail != user.Email.Address {
		d.logger.WithFields(logrus.Fields{
			"old": existingEmail, "new": user.Email.Address,
		}).Info("user update changes the primary key, running email-change protocol")
		return repository.ChangeEmail(ctx, d, existingEmail, user)
	}

	email := user.Email.Address
	current, err := d.getRecord(ctx, email)
	if err != nil {
		return entity.User{}, err
	}

	document, err := repository.ToDocument(user)
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the user could not be serialized", err)
	}

	now := time.Now().UnixMilli()
	result, err := d.collection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: email}, {Key: "version", Value: current.Version}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "version", Value: uuid.NewString()},
			{Key: "update_time", Value: now},
			{Key: "document", Value: document},
		}}})
	if err != nil {
		return entity.User{}, d.translate(err, email, "update")
	}

	// The filtered update cannot distinguish "version moved on" from a plain
	// no-op, so a zero modified count after a successful read is a conflict.
	if result.ModifiedCount == 0 {
		d.logger.WithField("email", email).Warn("update lost the version race, aborting")
		return entity.User{}, repository.NewError(repository.Conflict, email,
			"the user was updated concurrently", nil)
	}

	return user.WithTime(current.CreationTime, now), nil
}

func (d *UsersDao) Delete(ctx context.Context, email string) (entity.User, error) {
	record, err := d.getRecord(ctx, email)
	if err != nil {
		return entity.User{}, err
	}

	result, err := d.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: email}})
	if err != nil {
		return entity.User{}, d.translate(err, email, "delete")
	}
	if result.DeletedCount == 0 {
		d.logger.WithField("email", email).Warn("delete target vanished")
		return entity.User{}, repository.NewError(repository.UserNotFound, email,
			"the user to delete was not found", nil)
	}

	return d.toUser(record)
}

func (d *UsersDao) Ping(ctx context.Context) error {
	if err := d.pinger.Ping(ctx, readpref.Primary()); err != nil {
		return repository.NewError(repository.DatabaseDown, "",
			"the database is currently unavailable", err)
	}
	return nil
}

func (d *UsersDao) getRecord(ctx context.Context, email string) (userRecord, error) {
	var record userRecord
	err := d.collection.FindOne(ctx, bson.D{{Key: "_id", Value: email}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		d.logger.WithField("email", email).Warn("user not found")
		return userRecord{}, repository.NewError(repository.UserNotFound, email,
			"the user was not found", err)
	}
	if err != nil {
		return userRecord{}, d.translate(err, email, "read")
	}
	return record, nil
}

func (d *UsersDao) toUser(record userRecord) (entity.User, error) {
	user, err := repository.FromDocument(record.Document)
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, record.Email,
			"the stored document could not be decoded", err)
	}
	return user.WithTime(record.CreationTime, record.UpdateTime), nil
}

// translate converts a driver failure into the shared error taxonomy:
// duplicate keys are conflicts, timeouts and network faults mean the database
// is down, and any other command or write rejection is RequestRejected.
func (d *UsersDao) translate(err error, email, op string) *repository.Error {
	log := d.logger.WithError(err).WithFields(logrus.Fields{"email": email, "op": op})

	switch {
	case mongo.IsDuplicateKeyError(err):
		log.Warn("user already exists")
		return repository.NewError(repository.Conflict, email,
			"the user already exists", err)
	case mongo.IsTimeout(err):
		log.Error("database operation timed out")
		return repository.NewError(repository.DatabaseDown, email,
			"the database is currently unavailable", err)
	case mongo.IsNetworkError(err):
		log.Error("database is unreachable")
		return repository.NewError(repository.DatabaseDown, email,
			"the database is currently unavailable", err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		log.Error("database rejected the command")
		return repository.NewError(repository.RequestRejected, email,
			"the database rejected the request: "+cmdErr.Message, err)
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		if writeErr.HasErrorCode(exceededTimeLimit) {
			log.Error("database write timed out")
			return repository.NewError(repository.DatabaseDown, email,
				"the database is currently unavailable", err)
		}
		log.Error("database rejected the write")
		return repository.NewError(repository.RequestRejected, email,
			"the database rejected the request", err)
	}

	log.Error("unknown database error")
	return repository.NewError(repository.DatabaseDown, email,
		"the database is currently unavailable", err)
}

var _ repository.UsersDao = (*UsersDao)(nil)
