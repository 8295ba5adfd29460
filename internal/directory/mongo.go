package directory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/campuslink/chatd/internal/models"
)

// MongoDirectory reads users from the platform's MongoDB user collection.
type MongoDirectory struct {
	client *mongo.Client
	users  *mongo.Collection
}

// mongoUser is the stored shape of a user document; only the fields the
// messaging engine needs are decoded.
type mongoUser struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

// NewMongoDirectory connects to the platform database and returns a directory
// backed by its users collection.
func NewMongoDirectory(ctx context.Context, mongoURL, dbName string) (*MongoDirectory, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	return &MongoDirectory{
		client: client,
		users:  client.Database(dbName).Collection("users"),
	}, nil
}

// Close disconnects from MongoDB.
func (d *MongoDirectory) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Ping checks the MongoDB connection.
func (d *MongoDirectory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Lookup returns the user or nil when the id is unknown or malformed.
func (d *MongoDirectory) Lookup(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	var doc mongoUser
	err = d.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &models.User{ID: doc.ID.Hex(), Name: doc.Name}, nil
}
