package repository

import (
	"context"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCategoryRepository struct {
	collection *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) CategoryRepository {
	return &mongoCategoryRepository{collection: db.Collection(CategoriesCollection)}
}

func (r *mongoCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, category)
	return translate(err)
}

func (r *mongoCategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return findOne[models.Category](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoCategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return findOne[models.Category](ctx, r.collection, bson.M{"name": models.NormalizeCategoryName(name)})
}

func (r *mongoCategoryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	return findAll[models.Category](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoCategoryRepository) List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int64, error) {
	filter := bson.M{}
	if q.IsActive != nil {
		filter["isActive"] = *q.IsActive
	}
	return findPage[models.Category](ctx, r.collection, filter, bson.D{{Key: "name", Value: 1}}, q.Page)
}

func (r *mongoCategoryRepository) Save(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": category.ID}, category)
	if err != nil {
		return translate(err)
	}
	return requireMatched(res)
}

func (r *mongoCategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	return requireDeleted(res)
}
