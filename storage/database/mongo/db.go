package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/academia/core"
)

const (
	coursesColl     = "courses"
	studentsColl    = "students"
	paymentsColl    = "payments"
	enrollmentsColl = "enrollments"
)

// Connect opens a client on the configured replica set and pings the primary.
func Connect(ctx context.Context, conf core.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "pinging mongo")
	}
	return client, client.Database(conf.Database), nil
}

// EnsureIndexes creates the unique constraints the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(studentsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "lms_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"lms_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "account_status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return errors.Wrap(err, "creating student indexes")
	}
	_, err = db.Collection(enrollmentsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "course_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Wrap(err, "creating enrollment indexes")
}
