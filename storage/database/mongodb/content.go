package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/educryption/core/content"
)

type contentDocument struct {
	ID        primitive.ObjectID   `bson:"_id"`
	Title     string               `bson:"title"`
	File      string               `bson:"file,omitempty"`
	UnitID    primitive.ObjectID   `bson:"unit_id"`
	Comments  []primitive.ObjectID `bson:"comments"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d contentDocument) toContent() content.Content {
	return content.Content{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		File:      d.File,
		UnitID:    d.UnitID.Hex(),
		Comments:  hexes(d.Comments),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type contentRepository struct {
	coll     *mongo.Collection
	comments *mongo.Collection
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{
		coll:     db.db.Collection(contentsCollection),
		comments: db.db.Collection(commentsCollection),
	}
}

func (repo *contentRepository) query(ctx context.Context, filter bson.M) ([]content.Content, error) {
	var docs []contentDocument
	if err := findAll(ctx, repo.coll, filter, &docs); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	contents := make([]content.Content, 0, len(docs))
	for _, d := range docs {
		contents = append(contents, d.toContent())
	}
	return contents, nil
}

func (repo *contentRepository) findOneAndUpdate(ctx context.Context, id string, update bson.M) (content.Content, error) {
	var doc contentDocument
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(id)}, update, returnAfter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return content.Content{}, content.ErrNotFound
		}
		return content.Content{}, errors.Wrap(err, "updating content")
	}
	return doc.toContent(), nil
}

func (repo *contentRepository) CreateContent(ctx context.Context, c content.Content) (content.Content, error) {
	doc := contentDocument{
		ID:        primitive.NewObjectID(),
		Title:     c.Title,
		File:      c.File,
		UnitID:    oid(c.UnitID),
		Comments:  oids(c.Comments),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return content.Content{}, errors.Wrap(err, "inserting content")
	}
	return doc.toContent(), nil
}

func (repo *contentRepository) QueryContents(ctx context.Context) ([]content.Content, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *contentRepository) QueryContentsByUnit(ctx context.Context, unitID string) ([]content.Content, error) {
	return repo.query(ctx, bson.M{"unit_id": oid(unitID)})
}

func (repo *contentRepository) QueryContentFiles(ctx context.Context) ([]string, error) {
	values, err := repo.coll.Distinct(ctx, "file", bson.M{"file": bson.M{"$exists": true, "$ne": ""}})
	if err != nil {
		return nil, errors.Wrap(err, "querying content files")
	}
	files := make([]string, 0, len(values))
	for _, v := range values {
		if f, ok := v.(string); ok {
			files = append(files, f)
		}
	}
	return files, nil
}

func (repo *contentRepository) GetContent(ctx context.Context, id string) (content.Content, error) {
	var doc contentDocument
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return content.Content{}, content.ErrNotFound
		}
		return content.Content{}, errors.Wrap(err, "finding content")
	}
	return doc.toContent(), nil
}

func (repo *contentRepository) UpdateContent(ctx context.Context, c content.Content) (content.Content, error) {
	set := bson.M{"title": c.Title, "unit_id": oid(c.UnitID), "updated_at": c.UpdatedAt}
	update := bson.M{"$set": set}
	if c.File != "" {
		set["file"] = c.File
	} else {
		update["$unset"] = bson.M{"file": ""}
	}
	return repo.findOneAndUpdate(ctx, c.ID, update)
}

func (repo *contentRepository) DeleteContent(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid(id)})
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	if res.DeletedCount == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (repo *contentRepository) PushContentComment(ctx context.Context, id, commentID string) (content.Content, error) {
	return repo.findOneAndUpdate(ctx, id, bson.M{"$push": bson.M{"comments": oid(commentID)}})
}

func (repo *contentRepository) PullContentComment(ctx context.Context, id, commentID string) error {
	_, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid(id)}, bson.M{"$pull": bson.M{"comments": oid(commentID)}})
	return errors.Wrap(err, "pulling content comment")
}

func (repo *contentRepository) CommentExists(ctx context.Context, commentID string) (bool, error) {
	n, err := repo.comments.CountDocuments(ctx, bson.M{"_id": oid(commentID)})
	if err != nil {
		return false, errors.Wrap(err, "counting comments")
	}
	return n > 0, nil
}
