package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
)

type contentRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	File      null.String    `db:"file"`
	UnitID    string         `db:"unit_id"`
	Comments  pq.StringArray `db:"comments"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r contentRow) toContent() content.Content {
	return content.Content{
		ID:        r.ID,
		Title:     r.Title,
		File:      r.File.String,
		UnitID:    r.UnitID,
		Comments:  fromArray(r.Comments),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

func (repo *contentRepository) selectRows(ctx context.Context, q string, args ...interface{}) ([]content.Content, error) {
	var rows []contentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting contents")
	}
	contents := make([]content.Content, 0, len(rows))
	for _, r := range rows {
		contents = append(contents, r.toContent())
	}
	return contents, nil
}

func (repo *contentRepository) getRow(ctx context.Context, q string, args ...interface{}) (content.Content, error) {
	var row contentRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return content.Content{}, content.ErrNotFound
		}
		return content.Content{}, errors.Wrap(err, "selecting content")
	}
	return row.toContent(), nil
}

func (repo *contentRepository) CreateContent(ctx context.Context, c content.Content) (content.Content, error) {
	row := contentRow{
		ID:        core.NewID(),
		Title:     c.Title,
		File:      null.NewString(c.File, c.File != ""),
		UnitID:    c.UnitID,
		Comments:  stringArray(c.Comments),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
	q := `INSERT INTO contents (id, title, file, unit_id, comments, created_at, updated_at)
		VALUES (:id, :title, :file, :unit_id, :comments, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return content.Content{}, errors.Wrap(err, "inserting content")
	}
	return row.toContent(), nil
}

func (repo *contentRepository) QueryContents(ctx context.Context) ([]content.Content, error) {
	return repo.selectRows(ctx, `SELECT * FROM contents ORDER BY id`)
}

func (repo *contentRepository) QueryContentsByUnit(ctx context.Context, unitID string) ([]content.Content, error) {
	return repo.selectRows(ctx, `SELECT * FROM contents WHERE unit_id = $1 ORDER BY id`, unitID)
}

func (repo *contentRepository) QueryContentFiles(ctx context.Context) ([]string, error) {
	var files []string
	if err := repo.db.SelectContext(ctx, &files, `SELECT DISTINCT file FROM contents WHERE file IS NOT NULL`); err != nil {
		return nil, errors.Wrap(err, "selecting content files")
	}
	return files, nil
}

func (repo *contentRepository) GetContent(ctx context.Context, id string) (content.Content, error) {
	return repo.getRow(ctx, `SELECT * FROM contents WHERE id = $1`, id)
}

func (repo *contentRepository) UpdateContent(ctx context.Context, c content.Content) (content.Content, error) {
	return repo.getRow(ctx,
		`UPDATE contents SET title = $2, file = $3, unit_id = $4, updated_at = $5 WHERE id = $1 RETURNING *`,
		c.ID, c.Title, null.NewString(c.File, c.File != ""), c.UnitID, c.UpdatedAt.UTC(),
	)
}

func (repo *contentRepository) DeleteContent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (repo *contentRepository) PushContentComment(ctx context.Context, id, commentID string) (content.Content, error) {
	return repo.getRow(ctx,
		`UPDATE contents SET comments = array_append(comments, $2) WHERE id = $1 RETURNING *`,
		id, commentID,
	)
}

func (repo *contentRepository) PullContentComment(ctx context.Context, id, commentID string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE contents SET comments = array_remove(comments, $2) WHERE id = $1`, id, commentID)
	return errors.Wrap(err, "pulling content comment")
}

func (repo *contentRepository) CommentExists(ctx context.Context, commentID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, commentID)
	return exists, errors.Wrap(err, "checking comment")
}
