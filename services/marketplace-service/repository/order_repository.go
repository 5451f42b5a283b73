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

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(OrdersCollection)}
}

func (r *mongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, order)
	return translate(err)
}

func (r *mongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.collection, bson.M{"orderNumber": orderNumber})
}

func (r *mongoOrderRepository) List(ctx context.Context, q models.OrderQuery) ([]models.Order, int64, error) {
	filter := dateFilter(q.Range)
	if q.Customer != nil {
		filter["customer"] = *q.Customer
	}
	if q.OrderStatus != nil {
		filter["orderStatus"] = *q.OrderStatus
	}
	if q.PaymentStatus != nil {
		filter["paymentStatus"] = *q.PaymentStatus
	}
	return findPage[models.Order](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: -1}}, q.Page)
}

func (r *mongoOrderRepository) FindByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Order](ctx, r.collection, bson.M{"customer": customerID}, opts)
}

func (r *mongoOrderRepository) Patch(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, patch OrderPatch) (*models.Order, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.OrderStatus != nil {
		set["orderStatus"] = *patch.OrderStatus
	}
	if patch.PaymentStatus != nil {
		set["paymentStatus"] = *patch.PaymentStatus
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	filter := bson.M{"_id": id}
	if from != "" {
		filter["orderStatus"] = from
	}

	var out models.Order
	err := r.collection.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *mongoOrderRepository) Stats(ctx context.Context, rng models.DateRange) (*models.OrderStats, error) {
	match := bson.D{{Key: "$match", Value: dateFilter(rng)}}

	var totals []struct {
		Orders  int64   `bson:"orders"`
		Revenue float64 `bson:"revenue"`
	}
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{"_id": nil, "orders": bson.M{"$sum": 1}, "revenue": bson.M{"$sum": "$total"}}}},
	})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, err
	}

	byStatus := make([]models.StatusCount, 0)
	cursor, err = r.collection.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{"_id": "$orderStatus", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &byStatus); err != nil {
		return nil, err
	}

	stats := &models.OrderStats{OrdersByStatus: byStatus}
	if len(totals) > 0 {
		stats.TotalOrders = totals[0].Orders
		stats.TotalRevenue = totals[0].Revenue
	}
	return stats, nil
}

func dateFilter(rng models.DateRange) bson.M {
	filter := bson.M{}
	created := bson.M{}
	if rng.From != nil {
		created["$gte"] = *rng.From
	}
	if rng.To != nil {
		created["$lte"] = *rng.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}
