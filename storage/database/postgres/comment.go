package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/comment"
)

type commentRow struct {
	ID         string         `db:"id"`
	Text       string         `db:"text"`
	UserID     string         `db:"user_id"`
	ContentID  null.String    `db:"content_id"`
	CommentID  null.String    `db:"comment_id"`
	References pq.StringArray `db:"references"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r commentRow) toComment() comment.Comment {
	return comment.Comment{
		ID:         r.ID,
		Text:       r.Text,
		UserID:     r.UserID,
		ContentID:  r.ContentID.String,
		CommentID:  r.CommentID.String,
		References: fromArray(r.References),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) comment.Repository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) selectRows(ctx context.Context, q string, args ...interface{}) ([]comment.Comment, error) {
	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.toComment())
	}
	return comments, nil
}

func (repo *commentRepository) getRow(ctx context.Context, q string, args ...interface{}) (comment.Comment, error) {
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "selecting comment")
	}
	return row.toComment(), nil
}

func (repo *commentRepository) exec(ctx context.Context, msg, q string, args ...interface{}) error {
	_, err := repo.db.ExecContext(ctx, q, args...)
	return errors.Wrap(err, msg)
}

func (repo *commentRepository) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	row := commentRow{
		ID:         core.NewID(),
		Text:       c.Text,
		UserID:     c.UserID,
		ContentID:  null.NewString(c.ContentID, c.ContentID != ""),
		CommentID:  null.NewString(c.CommentID, c.CommentID != ""),
		References: stringArray(c.References),
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
	q := `INSERT INTO comments (id, text, user_id, content_id, comment_id, "references", created_at, updated_at)
		VALUES (:id, :text, :user_id, :content_id, :comment_id, :references, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return row.toComment(), nil
}

func (repo *commentRepository) QueryComments(ctx context.Context) ([]comment.Comment, error) {
	return repo.selectRows(ctx, `SELECT * FROM comments ORDER BY id`)
}

func (repo *commentRepository) QueryCommentsByContent(ctx context.Context, contentID string) ([]comment.Comment, error) {
	return repo.selectRows(ctx, `SELECT * FROM comments WHERE content_id = $1 AND comment_id IS NULL ORDER BY id`, contentID)
}

func (repo *commentRepository) QueryCommentsByUser(ctx context.Context, userID string) ([]comment.Comment, error) {
	return repo.selectRows(ctx, `SELECT * FROM comments WHERE user_id = $1 ORDER BY id`, userID)
}

func (repo *commentRepository) QueryReplies(ctx context.Context, commentID string) ([]comment.Comment, error) {
	return repo.selectRows(ctx, `SELECT * FROM comments WHERE comment_id = $1 ORDER BY id`, commentID)
}

func (repo *commentRepository) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	return repo.getRow(ctx, `SELECT * FROM comments WHERE id = $1`, id)
}

func (repo *commentRepository) UpdateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	return repo.getRow(ctx,
		`UPDATE comments SET text = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		c.ID, c.Text, c.UpdatedAt.UTC(),
	)
}

func (repo *commentRepository) DeleteComment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return comment.ErrNotFound
	}
	return nil
}

func (repo *commentRepository) PushCommentReference(ctx context.Context, id, replyID string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE comments SET "references" = array_append("references", $2) WHERE id = $1`, id, replyID)
	if err != nil {
		return errors.Wrap(err, "pushing comment reference")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return comment.ErrNotFound
	}
	return nil
}

func (repo *commentRepository) PullCommentReference(ctx context.Context, id, replyID string) error {
	return repo.exec(ctx, "pulling comment reference",
		`UPDATE comments SET "references" = array_remove("references", $2) WHERE id = $1`, id, replyID)
}

func (repo *commentRepository) UnsetReplyParent(ctx context.Context, id string) error {
	return repo.exec(ctx, "detaching replies", `UPDATE comments SET comment_id = NULL WHERE comment_id = $1`, id)
}
