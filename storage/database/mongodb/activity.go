package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/educryption/core/activity"
)

type activityDocument struct {
	ID        primitive.ObjectID  `bson:"_id"`
	Title     string              `bson:"title"`
	UnitID    *primitive.ObjectID `bson:"unit_id"`
	CreatedAt time.Time           `bson:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

func (d activityDocument) toActivity() activity.Activity {
	return activity.Activity{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		UnitID:    optHex(d.UnitID),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type activityRepository struct {
	coll *mongo.Collection
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{coll: db.db.Collection(activitiesCollection)}
}

func (repo *activityRepository) query(ctx context.Context, filter bson.M) ([]activity.Activity, error) {
	var docs []activityDocument
	if err := findAll(ctx, repo.coll, filter, &docs); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	activities := make([]activity.Activity, 0, len(docs))
	for _, d := range docs {
		activities = append(activities, d.toActivity())
	}
	return activities, nil
}

func (repo *activityRepository) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	doc := activityDocument{
		ID:        primitive.NewObjectID(),
		Title:     a.Title,
		UnitID:    optOID(a.UnitID),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return doc.toActivity(), nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context) ([]activity.Activity, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *activityRepository) QueryActivitiesByUnit(ctx context.Context, unitID string) ([]activity.Activity, error) {
	return repo.query(ctx, bson.M{"unit_id": oid(unitID)})
}

func (repo *activityRepository) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	var doc activityDocument
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "finding activity")
	}
	return doc.toActivity(), nil
}

func (repo *activityRepository) UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	var doc activityDocument
	update := bson.M{"$set": bson.M{"title": a.Title, "updated_at": a.UpdatedAt}}
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(a.ID)}, update, returnAfter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "updating activity")
	}
	return doc.toActivity(), nil
}

func (repo *activityRepository) DeleteActivity(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid(id)})
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if res.DeletedCount == 0 {
		return activity.ErrNotFound
	}
	return nil
}
