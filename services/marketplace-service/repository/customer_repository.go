package repository

import (
	"context"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCustomerRepository struct {
	collection *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) CustomerRepository {
	return &mongoCustomerRepository{collection: db.Collection(CustomersCollection)}
}

func (r *mongoCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, customer)
	return translate(err)
}

func (r *mongoCustomerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	return findOne[models.Customer](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoCustomerRepository) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return findOne[models.Customer](ctx, r.collection, bson.M{"phone": phone})
}

func (r *mongoCustomerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return findOne[models.Customer](ctx, r.collection, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *mongoCustomerRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Customer, error) {
	if len(ids) == 0 {
		return []models.Customer{}, nil
	}
	return findAll[models.Customer](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoCustomerRepository) List(ctx context.Context, q models.CustomerQuery) ([]models.Customer, int64, error) {
	filter := bson.M{}
	if q.IsActive != nil {
		filter["isActive"] = *q.IsActive
	}
	if q.Search != nil && *q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsInsensitive(*q.Search)},
			bson.M{"phone": containsInsensitive(*q.Search)},
			bson.M{"email": containsInsensitive(*q.Search)},
		}
	}
	return findPage[models.Customer](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: -1}}, q.Page)
}

func (r *mongoCustomerRepository) Save(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	// running totals belong to the order workflow
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": customer.ID}, bson.M{"$set": bson.M{
		"name":      customer.Name,
		"email":     customer.Email,
		"phone":     customer.Phone,
		"address":   customer.Address,
		"isActive":  customer.IsActive,
		"updatedAt": customer.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	return requireMatched(res)
}

func (r *mongoCustomerRepository) AddOrderStats(ctx context.Context, id primitive.ObjectID, orders int, spent float64) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"totalOrders": orders, "totalSpent": spent},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	return requireMatched(res)
}

func (r *mongoCustomerRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	return requireDeleted(res)
}
