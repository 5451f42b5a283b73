package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
	InventoryCollection  = "inventories"
	CustomersCollection  = "customers"
	OrdersCollection     = "orders"
	CountersCollection   = "counters"
	AdminsCollection     = "admins"
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// findPage runs the count and the paged find with the same filter.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, page models.Page) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(page.Skip()).SetLimit(int64(page.Limit))
	}
	items, err := findAll[T](ctx, coll, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// containsInsensitive builds a case-insensitive substring regex from user input.
func containsInsensitive(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func requireMatched(res *mongo.UpdateResult) error {
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func requireDeleted(res *mongo.DeleteResult) error {
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
