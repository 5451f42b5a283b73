package repository

import (
	"context"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(ProductsCollection)}
}

func (r *mongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, product)
	return translate(err)
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return findOne[models.Product](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoProductRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return findOne[models.Product](ctx, r.collection, bson.M{"barcode": barcode})
}

func (r *mongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return findAll[models.Product](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoProductRepository) List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	filter := bson.M{}
	if q.Category != nil {
		filter["category"] = *q.Category
	}
	if q.IsActive != nil {
		filter["isActive"] = *q.IsActive
	}
	if q.Search != nil && *q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsInsensitive(*q.Search)},
			bson.M{"description": containsInsensitive(*q.Search)},
		}
	}
	return findPage[models.Product](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: -1}}, q.Page)
}

func (r *mongoProductRepository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	filter := bson.M{
		"isActive": true,
		"$expr":    bson.M{"$lte": bson.A{"$stock", "$minStockLevel"}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "stock", Value: 1}})
	return findAll[models.Product](ctx, r.collection, filter, opts)
}

// Save writes the catalog fields of product. Stock belongs to the inventory
// ledger and is only written through SetStock.
func (r *mongoProductRepository) Save(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":          product.Name,
		"description":   product.Description,
		"category":      product.Category,
		"price":         product.Price,
		"costPrice":     product.CostPrice,
		"unit":          product.Unit,
		"minStockLevel": product.MinStockLevel,
		"isActive":      product.IsActive,
		"updatedAt":     product.UpdatedAt,
	}
	unset := bson.M{}
	optional := func(field, value string) {
		if value == "" {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}
	optional("image", product.Image)
	optional("barcode", product.Barcode)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return translate(err)
	}
	return requireMatched(res)
}

func (r *mongoProductRepository) SetStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stock": stock, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	return requireMatched(res)
}

func (r *mongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	return requireDeleted(res)
}
