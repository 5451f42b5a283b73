package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSequenceRepository struct {
	collection *mongo.Collection
}

// NewSequenceRepository stores one {_id: name, seq: n} document per sequence.
func NewSequenceRepository(db *mongo.Database) SequenceRepository {
	return &mongoSequenceRepository{collection: db.Collection(CountersCollection)}
}

func (r *mongoSequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
