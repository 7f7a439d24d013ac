package dynamodb

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voltauth/volt/internal/domain/entity"
	"github.com/voltauth/volt/internal/domain/repository"
)

// userRecord is the single-table item: the email address is the hash key,
// version is the optimistic-concurrency fencing token, and document holds the
// serialized user payload. The id attribute is carried for forward
// compatibility and unused by any logic.
type userRecord struct {
	Email        string `dynamodbav:"email"`
	ID           string `dynamodbav:"id"`
	Version      string `dynamodbav:"version"`
	CreationTime int64  `dynamodbav:"creation_time"`
	UpdateTime   int64  `dynamodbav:"update_time"`
	Document     string `dynamodbav:"document"`
}

// UsersDao implements repository.UsersDao on a DynamoDB table using
// single-item conditional writes. The table is created lazily on first use;
// that check is guarded by a best-effort flag only, so concurrent cold starts
// may both attempt creation (ResourceInUse is treated as success).
type UsersDao struct {
	client      Client
	table       string
	logger      *logrus.Logger
	provisioned atomic.Bool
}

func NewUsersDao(client Client, table string, logger *logrus.Logger) *UsersDao {
	return &UsersDao{client: client, table: table, logger: logger}
}

func (d *UsersDao) Insert(ctx context.Context, user entity.User) (entity.User, error) {
	email := user.Email.Address
	if err := d.ensureTable(ctx, email); err != nil {
		return entity.User{}, err
	}

	document, err := repository.ToDocument(user)
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the user could not be serialized", err)
	}

	now := time.Now().UnixMilli()
	item, err := attributevalue.MarshalMap(userRecord{
		Email:        email,
		ID:           uuid.NewString(),
		Version:      uuid.NewString(),
		CreationTime: now,
		UpdateTime:   now,
		Document:     document,
	})
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the record could not be encoded", err)
	}

	_, err = d.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			d.logger.WithField("email", email).Warn("insert rejected, user already exists")
			return entity.User{}, repository.NewError(repository.Conflict, email,
				"the user already exists", err)
		}
		return entity.User{}, d.translate(err, email, "insert")
	}

	return user.WithTime(now, now), nil
}

func (d *UsersDao) FindByEmail(ctx context.Context, email string) (entity.User, error) {
	if err := d.ensureTable(ctx, email); err != nil {
		return entity.User{}, err
	}

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
	if err := d.ensureTable(ctx, email); err != nil {
		return entity.User{}, err
	}

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
	updated := current
	updated.Version = uuid.NewString()
	updated.UpdateTime = now
	updated.Document = document

	item, err := attributevalue.MarshalMap(updated)
	if err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the record could not be encoded", err)
	}

	_, err = d.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("#v = :version"),
		ExpressionAttributeNames: map[string]string{
			"#v": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberS{Value: current.Version},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			d.logger.WithField("email", email).Warn("update lost the version race, aborting")
			return entity.User{}, repository.NewError(repository.Conflict, email,
				"the user was updated concurrently", err)
		}
		return entity.User{}, d.translate(err, email, "update")
	}

	return user.WithTime(current.CreationTime, now), nil
}

func (d *UsersDao) Delete(ctx context.Context, email string) (entity.User, error) {
	if err := d.ensureTable(ctx, email); err != nil {
		return entity.User{}, err
	}

	out, err := d.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		ConditionExpression: aws.String("attribute_exists(email)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			d.logger.WithField("email", email).Warn("delete target not found")
			return entity.User{}, repository.NewError(repository.UserNotFound, email,
				"the user to delete was not found", err)
		}
		return entity.User{}, d.translate(err, email, "delete")
	}

	var record userRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &record); err != nil {
		return entity.User{}, repository.NewError(repository.RequestRejected, email,
			"the deleted record could not be decoded", err)
	}

	return d.toUser(record)
}

// Ping lists tables to confirm the backend is reachable.
func (d *UsersDao) Ping(ctx context.Context) error {
	_, err := d.client.ListTables(ctx, &awsdynamodb.ListTablesInput{Limit: aws.Int32(1)})
	if err != nil {
		return d.translate(err, "", "ping")
	}
	return nil
}

// getRecord performs a point read by email, translating an empty result to
// UserNotFound.
func (d *UsersDao) getRecord(ctx context.Context, email string) (userRecord, error) {
	out, err := d.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return userRecord{}, d.translate(err, email, "read")
	}
	if len(out.Item) == 0 {
		d.logger.WithField("email", email).Warn("user not found")
		return userRecord{}, repository.NewError(repository.UserNotFound, email,
			"the user was not found", nil)
	}

	var record userRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return userRecord{}, repository.NewError(repository.RequestRejected, email,
			"the record could not be decoded", err)
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

// ensureTable lazily creates the backing table on first use. The initialized
// flag is best-effort: concurrent first calls may race into CreateTable, so
// "already exists" counts as success.
func (d *UsersDao) ensureTable(ctx context.Context, email string) error {
	if d.provisioned.Load() {
		return nil
	}

	list, err := d.client.ListTables(ctx, &awsdynamodb.ListTablesInput{})
	if err != nil {
		return d.translate(err, email, "list tables")
	}

	if !slices.Contains(list.TableNames, d.table) {
		d.logger.WithField("table", d.table).Info("creating users table")
		_, err := d.client.CreateTable(ctx, &awsdynamodb.CreateTableInput{
			TableName: aws.String(d.table),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("email"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			var inUse *types.ResourceInUseException
			if !errors.As(err, &inUse) {
				return d.translate(err, email, "create table")
			}
			// Another process created it first.
		}
	}

	d.provisioned.Store(true)
	return nil
}

// translate converts a non-conditional backend failure into the shared error
// taxonomy: reachable-but-rejected requests become RequestRejected, service
// faults and transport failures become DatabaseDown.
func (d *UsersDao) translate(err error, email, op string) *repository.Error {
	log := d.logger.WithError(err).WithFields(logrus.Fields{"email": email, "op": op})

	var serverFault *types.InternalServerError
	if errors.As(err, &serverFault) {
		log.Error("database is currently unresponsive")
		return repository.NewError(repository.DatabaseDown, email,
			"the database is currently unavailable", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		log.Error("database rejected the request")
		return repository.NewError(repository.RequestRejected, email,
			"the database rejected the request", err)
	}

	log.Error("database is unreachable")
	return repository.NewError(repository.DatabaseDown, email,
		"the database is currently unavailable", err)
}

var _ repository.UsersDao = (*UsersDao)(nil)
