package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/educryption/core/unit"
)

type unitDocument struct {
	ID            primitive.ObjectID   `bson:"_id"`
	Title         string               `bson:"title"`
	UnlockKeyHash []byte               `bson:"unlock_key_hash,omitempty"`
	Activities    []primitive.ObjectID `bson:"activities"`
	Contents      []primitive.ObjectID `bson:"contents"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (d unitDocument) toUnit() unit.Unit {
	return unit.Unit{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		UnlockKeyHash: d.UnlockKeyHash,
		Activities:    hexes(d.Activities),
		Contents:      hexes(d.Contents),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type unitRepository struct {
	coll *mongo.Collection
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *DB) unit.Repository {
	return &unitRepository{coll: db.db.Collection(unitsCollection)}
}

func (repo *unitRepository) CreateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	doc := unitDocument{
		ID:            primitive.NewObjectID(),
		Title:         u.Title,
		UnlockKeyHash: u.UnlockKeyHash,
		Activities:    oids(u.Activities),
		Contents:      oids(u.Contents),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return unit.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return doc.toUnit(), nil
}

func (repo *unitRepository) QueryUnits(ctx context.Context) ([]unit.Unit, error) {
	var docs []unitDocument
	if err := findAll(ctx, repo.coll, bson.M{}, &docs); err != nil {
		return nil, errors.Wrap(err, "querying units")
	}
	units := make([]unit.Unit, 0, len(docs))
	for _, d := range docs {
		units = append(units, d.toUnit())
	}
	return units, nil
}

func (repo *unitRepository) GetUnit(ctx context.Context, id string) (unit.Unit, error) {
	var doc unitDocument
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, errors.Wrap(err, "finding unit")
	}
	return doc.toUnit(), nil
}

func (repo *unitRepository) findOneAndUpdate(ctx context.Context, id string, update bson.M) (unit.Unit, error) {
	var doc unitDocument
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(id)}, update, returnAfter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, errors.Wrap(err, "updating unit")
	}
	return doc.toUnit(), nil
}

func (repo *unitRepository) UpdateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	update := bson.M{"$set": bson.M{"title": u.Title, "updated_at": u.UpdatedAt}}
	if u.HasUnlockKey() {
		update["$set"].(bson.M)["unlock_key_hash"] = u.UnlockKeyHash
	} else {
		update["$unset"] = bson.M{"unlock_key_hash": ""}
	}
	return repo.findOneAndUpdate(ctx, u.ID, update)
}

func (repo *unitRepository) DeleteUnit(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid(id)})
	if err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	if res.DeletedCount == 0 {
		return unit.ErrNotFound
	}
	return nil
}

func (repo *unitRepository) PushUnitRef(ctx context.Context, id string, field unit.RefField, refID string) (unit.Unit, error) {
	return repo.findOneAndUpdate(ctx, id, bson.M{"$push": bson.M{string(field): oid(refID)}})
}

func (repo *unitRepository) PullUnitRef(ctx context.Context, id string, field unit.RefField, refID string) error {
	_, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid(id)}, bson.M{"$pull": bson.M{string(field): oid(refID)}})
	return errors.Wrap(err, "pulling unit reference")
}
