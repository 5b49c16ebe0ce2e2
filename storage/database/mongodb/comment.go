package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/educryption/core/comment"
)

type commentDocument struct {
	ID         primitive.ObjectID   `bson:"_id"`
	Text       string               `bson:"text"`
	UserID     primitive.ObjectID   `bson:"user_id"`
	ContentID  *primitive.ObjectID  `bson:"content_id,omitempty"`
	CommentID  *primitive.ObjectID  `bson:"comment_id,omitempty"`
	References []primitive.ObjectID `bson:"references"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

func (d commentDocument) toComment() comment.Comment {
	return comment.Comment{
		ID:         d.ID.Hex(),
		Text:       d.Text,
		UserID:     d.UserID.Hex(),
		ContentID:  optHex(d.ContentID),
		CommentID:  optHex(d.CommentID),
		References: hexes(d.References),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type commentRepository struct {
	coll *mongo.Collection
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) comment.Repository {
	return &commentRepository{coll: db.db.Collection(commentsCollection)}
}

func (repo *commentRepository) query(ctx context.Context, filter bson.M) ([]comment.Comment, error) {
	var docs []commentDocument
	if err := findAll(ctx, repo.coll, filter, &docs); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]comment.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, d.toComment())
	}
	return comments, nil
}

func (repo *commentRepository) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	doc := commentDocument{
		ID:         primitive.NewObjectID(),
		Text:       c.Text,
		UserID:     oid(c.UserID),
		ContentID:  optOID(c.ContentID),
		CommentID:  optOID(c.CommentID),
		References: oids(c.References),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return doc.toComment(), nil
}

func (repo *commentRepository) QueryComments(ctx context.Context) ([]comment.Comment, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *commentRepository) QueryCommentsByContent(ctx context.Context, contentID string) ([]comment.Comment, error) {
	return repo.query(ctx, bson.M{"content_id": oid(contentID), "comment_id": bson.M{"$exists": false}})
}

func (repo *commentRepository) QueryCommentsByUser(ctx context.Context, userID string) ([]comment.Comment, error) {
	return repo.query(ctx, bson.M{"user_id": oid(userID)})
}

func (repo *commentRepository) QueryReplies(ctx context.Context, commentID string) ([]comment.Comment, error) {
	return repo.query(ctx, bson.M{"comment_id": oid(commentID)})
}

func (repo *commentRepository) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	var doc commentDocument
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "finding comment")
	}
	return doc.toComment(), nil
}

func (repo *commentRepository) UpdateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	var doc commentDocument
	update := bson.M{"$set": bson.M{"text": c.Text, "updated_at": c.UpdatedAt}}
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(c.ID)}, update, returnAfter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "updating comment")
	}
	return doc.toComment(), nil
}

func (repo *commentRepository) DeleteComment(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid(id)})
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if res.DeletedCount == 0 {
		return comment.ErrNotFound
	}
	return nil
}

func (repo *commentRepository) PushCommentReference(ctx context.Context, id, replyID string) error {
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid(id)}, bson.M{"$push": bson.M{"references": oid(replyID)}})
	if err != nil {
		return errors.Wrap(err, "pushing comment reference")
	}
	if res.MatchedCount == 0 {
		return comment.ErrNotFound
	}
	return nil
}

func (repo *commentRepository) PullCommentReference(ctx context.Context, id, replyID string) error {
	_, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid(id)}, bson.M{"$pull": bson.M{"references": oid(replyID)}})
	return errors.Wrap(err, "pulling comment reference")
}

func (repo *commentRepository) UnsetReplyParent(ctx context.Context, id string) error {
	_, err := repo.coll.UpdateMany(ctx, bson.M{"comment_id": oid(id)}, bson.M{"$unset": bson.M{"comment_id": ""}})
	return errors.Wrap(err, "detaching replies")
}
