package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (m *Mongo) Save(ctx context.Context, snap *Snapshot) error {
	filter := bson.D{{Key: "scene", Value: snap.Scene}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "frame", Value: snap.Frame},
		{Key: "sprites", Value: snap.Sprites},
		{Key: "body", Value: snap.Body},
		{Key: "saved_at", Value: snap.SavedAt},
	}}}
	opts := options.Update().SetUpsert(true)

	_, err := m.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *Mongo) Load(ctx context.Context, scene string) (*Snapshot, error) {
	var snap Snapshot
	err := m.coll.FindOne(ctx, bson.D{{Key: "scene", Value: scene}}).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
