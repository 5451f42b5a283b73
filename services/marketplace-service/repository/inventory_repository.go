package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoInventoryRepository struct {
	collection *mongo.Collection
}

func NewInventoryRepository(db *mongo.Database) InventoryRepository {
	return &mongoInventoryRepository{collection: db.Collection(InventoryCollection)}
}

// deriveAvailable is the pipeline stage that keeps availableQuantity in step
// with quantity and reservedQuantity. It must run after any stage that changes
// either of them.
var deriveAvailable = bson.D{{Key: "$set", Value: bson.M{
	"availableQuantity": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$quantity", "$reservedQuantity"}}}},
}}}

func (r *mongoInventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.Recalculate()
	_, err := r.collection.InsertOne(ctx, inv)
	return translate(err)
}

func (r *mongoInventoryRepository) FindByProduct(ctx context.Context, productID primitive.ObjectID) (*models.Inventory, error) {
	return findOne[models.Inventory](ctx, r.collection, bson.M{"product": productID})
}

func (r *mongoInventoryRepository) ListAll(ctx context.Context) ([]models.Inventory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "availableQuantity", Value: 1}})
	return findAll[models.Inventory](ctx, r.collection, bson.M{}, opts)
}

func (r *mongoInventoryRepository) ListLow(ctx context.Context) ([]models.Inventory, error) {
	filter := bson.M{"$expr": bson.M{"$lte": bson.A{"$availableQuantity", "$minStockLevel"}}}
	opts := options.Find().SetSort(bson.D{{Key: "availableQuantity", Value: 1}})
	return findAll[models.Inventory](ctx, r.collection, filter, opts)
}

func (r *mongoInventoryRepository) AdjustQuantity(ctx context.Context, productID primitive.ObjectID, delta int, stamp models.StockStamp) (*models.Inventory, error) {
	now := time.Now().UTC()
	filter := bson.M{"product": productID}
	if delta < 0 {
		filter["availableQuantity"] = bson.M{"$gte": -delta}
	}

	set := bson.M{
		"quantity":  bson.M{"$add": bson.A{"$quantity", delta}},
		"updatedAt": now,
	}
	switch stamp {
	case models.StampSold:
		set["lastSold"] = now
	case models.StampRestocked:
		set["lastRestocked"] = now
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: set}},
		deriveAvailable,
	}

	var out models.Inventory
	err := r.collection.FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) && delta < 0 {
		// tell a missing ledger apart from a failed stock condition
		if _, findErr := r.FindByProduct(ctx, productID); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *mongoInventoryRepository) Patch(ctx context.Context, productID primitive.ObjectID, patch InventoryPatch) (*models.Inventory, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if patch.ReservedQuantity != nil {
		set["reservedQuantity"] = *patch.ReservedQuantity
	}
	if patch.MinStockLevel != nil {
		set["minStockLevel"] = *patch.MinStockLevel
	}
	if patch.MaxStockLevel != nil {
		set["maxStockLevel"] = *patch.MaxStockLevel
	}
	if patch.Restocked != nil {
		set["lastRestocked"] = *patch.Restocked
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: set}},
		deriveAvailable,
	}
	var out models.Inventory
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"product": productID}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *mongoInventoryRepository) DeleteByProduct(ctx context.Context, productID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"product": productID})
	if err != nil {
		return err
	}
	return requireDeleted(res)
}
