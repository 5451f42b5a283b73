package repository

import (
	"context"
	"strings"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoAdminRepository struct {
	collection *mongo.Collection
}

func NewAdminRepository(db *mongo.Database) AdminRepository {
	return &mongoAdminRepository{collection: db.Collection(AdminsCollection)}
}

func (r *mongoAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	admin.Username = strings.ToLower(strings.TrimSpace(admin.Username))
	_, err := r.collection.InsertOne(ctx, admin)
	return translate(err)
}

func (r *mongoAdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return findOne[models.Admin](ctx, r.collection, bson.M{"username": strings.ToLower(strings.TrimSpace(username))})
}

func (r *mongoAdminRepository) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	if err != nil {
		return err
	}
	return requireMatched(res)
}
