package dummydb

import (
	"context"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/comment"
)

type commentRepository struct {
	db *DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) comment.Repository {
	return &commentRepository{db: db}
}

func copyComment(c *comment.Comment) comment.Comment {
	cp := *c
	cp.References = cloneStrings(c.References)
	cp.User = nil
	return cp
}

func (repo *commentRepository) query(keep func(c *comment.Comment) bool) []comment.Comment {
	ids := sortedKeys(len(repo.db.comments), func(f func(string)) {
		for id := range repo.db.comments {
			f(id)
		}
	})
	comments := make([]comment.Comment, 0, len(ids))
	for _, id := range ids {
		if c := repo.db.comments[id]; keep(c) {
			comments = append(comments, copyComment(c))
		}
	}
	return comments
}

func (repo *commentRepository) CreateComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = core.NewID()
	stored := copyComment(&c)
	repo.db.comments[c.ID] = &stored
	return copyComment(&stored), nil
}

func (repo *commentRepository) QueryComments(_ context.Context) ([]comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(*comment.Comment) bool { return true }), nil
}

func (repo *commentRepository) QueryCommentsByContent(_ context.Context, contentID string) ([]comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(c *comment.Comment) bool { return c.ContentID == contentID && c.CommentID == "" }), nil
}

func (repo *commentRepository) QueryCommentsByUser(_ context.Context, userID string) ([]comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(c *comment.Comment) bool { return c.UserID == userID }), nil
}

func (repo *commentRepository) QueryReplies(_ context.Context, commentID string) ([]comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(c *comment.Comment) bool { return c.CommentID == commentID }), nil
}

func (repo *commentRepository) GetComment(_ context.Context, id string) (comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.comments[id]; ok {
		return copyComment(c), nil
	}
	return comment.Comment{}, comment.ErrNotFound
}

func (repo *commentRepository) UpdateComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.comments[c.ID]
	if !ok {
		return comment.Comment{}, comment.ErrNotFound
	}
	orig.Text = c.Text
	orig.UpdatedAt = c.UpdatedAt
	return copyComment(orig), nil
}

func (repo *commentRepository) DeleteComment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.comments[id]; !ok {
		return comment.ErrNotFound
	}
	delete(repo.db.comments, id)
	return nil
}

func (repo *commentRepository) PushCommentReference(_ context.Context, id, replyID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.comments[id]
	if !ok {
		return comment.ErrNotFound
	}
	c.References = pushString(c.References, replyID)
	return nil
}

func (repo *commentRepository) PullCommentReference(_ context.Context, id, replyID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c, ok := repo.db.comments[id]; ok {
		c.References = core.RemoveString(c.References, replyID)
	}
	return nil
}

func (repo *commentRepository) UnsetReplyParent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.comments {
		if c.CommentID == id {
			c.CommentID = ""
		}
	}
	return nil
}
