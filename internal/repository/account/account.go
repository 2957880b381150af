package account

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quietdrop/internal/model"
)

var ErrExists = errors.New("account already exists")

type (
	// Store persists credential records. GetByName returns (nil, nil) when
	// no account has that name.
	Store interface {
		GetByName(ctx context.Context, name string) (*model.Account, error)
		Create(ctx context.Context, acc *model.Account) error
	}

	AccountRepo struct {
		collection *mongo.Collection
	}
)

var _ Store = (*AccountRepo)(nil)

func NewAccountRepo(db *mongo.Database) *AccountRepo {
	return &AccountRepo{
		collection: db.Collection("accounts"),
	}
}

// EnsureIndexes creates the unique index on name.
func (r *AccountRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *AccountRepo) GetByName(ctx context.Context, name string) (*model.Account, error) {
	filter := bson.M{
		"name": name,
	}

	var acc model.Account
	err := r.collection.FindOne(ctx, filter).Decode(&acc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &acc, nil
}

func (r *AccountRepo) Create(ctx context.Context, acc *model.Account) error {
	res, err := r.collection.InsertOne(ctx, acc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return err
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		acc.ID = id
	}
	return nil
}
