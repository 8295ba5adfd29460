// Command useradd inserts a user into the MongoDB directory and prints the
// generated id. Intended for development and test environments; real
// deployments share the platform's user collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuslink/chatd/internal/config"
)

func main() {
	name := flag.String("name", "", "display name for the new user")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: useradd -name <display name>")
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.MongoURL == "" {
		fmt.Fprintln(os.Stderr, "MONGO_URL is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongo connection failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	users := client.Database(cfg.MongoDB).Collection("users")

	res, err := users.InsertOne(ctx, bson.M{
		"name":       *name,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User created: %s\n", *name)
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		fmt.Printf("ID:           %s\n", oid.Hex())
	} else {
		fmt.Printf("ID:           %v\n", res.InsertedID)
	}
}
