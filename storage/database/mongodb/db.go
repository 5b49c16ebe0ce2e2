package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/educryption/core"
)

// Collections
const (
	usersCollection      = "users"
	unitsCollection      = "units"
	activitiesCollection = "activities"
	contentsCollection   = "contents"
	commentsCollection   = "comments"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the configured MongoDB server and waits for it to answer.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	opts := options.Client().ApplyURI(conf.Database.URI)
	if conf.Database.User != "" {
		opts.SetAuth(options.Credential{Username: conf.Database.User, Password: conf.Database.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &DB{client: client, db: client.Database(conf.Database.Name)}, nil
}

// ping waits for the server to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, nil); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mongodb ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "mongodb ping timeout")
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Drop deletes the whole database. Used by tests.
func (db *DB) Drop(ctx context.Context) error {
	return db.db.Drop(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		activitiesCollection: {{Keys: bson.D{{Key: "unit_id", Value: 1}}}},
		contentsCollection:   {{Keys: bson.D{{Key: "unit_id", Value: 1}}}},
		commentsCollection: {
			{Keys: bson.D{{Key: "content_id", Value: 1}}},
			{Keys: bson.D{{Key: "comment_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// Helpers converting between hex ids and ObjectIDs.
// Ids reaching repositories are validated by the services.

func oid(id string) primitive.ObjectID {
	o, _ := primitive.ObjectIDFromHex(id)
	return o
}

// optOID returns nil for an empty id so that the field is stored as null.
func optOID(id string) *primitive.ObjectID {
	if id == "" {
		return nil
	}
	o := oid(id)
	return &o
}

func optHex(o *primitive.ObjectID) string {
	if o == nil {
		return ""
	}
	return o.Hex()
}

func oids(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		out = append(out, oid(id))
	}
	return out
}

func hexes(list []primitive.ObjectID) []string {
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, o.Hex())
	}
	return out
}

// byCreation sorts documents in creation order.
var byCreation = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

// findAll decodes every document of coll matching filter into out (a pointer to a slice).
func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}, opts ...*options.FindOptions) error {
	if len(opts) == 0 {
		opts = append(opts, byCreation)
	}
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// returnAfter makes FindOneAndUpdate return the updated document.
var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)
