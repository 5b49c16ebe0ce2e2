package dummydb

import (
	"context"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db}
}

func copyContent(c *content.Content) content.Content {
	cp := *c
	cp.Comments = cloneStrings(c.Comments)
	return cp
}

func (repo *contentRepository) query(keep func(c *content.Content) bool) []content.Content {
	ids := sortedKeys(len(repo.db.contents), func(f func(string)) {
		for id := range repo.db.contents {
			f(id)
		}
	})
	contents := make([]content.Content, 0, len(ids))
	for _, id := range ids {
		if c := repo.db.contents[id]; keep(c) {
			contents = append(contents, copyContent(c))
		}
	}
	return contents
}

func (repo *contentRepository) CreateContent(_ context.Context, c content.Content) (content.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = core.NewID()
	stored := copyContent(&c)
	repo.db.contents[c.ID] = &stored
	return copyContent(&stored), nil
}

func (repo *contentRepository) QueryContents(_ context.Context) ([]content.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(*content.Content) bool { return true }), nil
}

func (repo *contentRepository) QueryContentsByUnit(_ context.Context, unitID string) ([]content.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(c *content.Content) bool { return c.UnitID == unitID }), nil
}

func (repo *contentRepository) QueryContentFiles(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var files []string
	for _, c := range repo.db.contents {
		if c.File != "" {
			files = append(files, c.File)
		}
	}
	return files, nil
}

func (repo *contentRepository) GetContent(_ context.Context, id string) (content.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.contents[id]; ok {
		return copyContent(c), nil
	}
	return content.Content{}, content.ErrNotFound
}

func (repo *contentRepository) UpdateContent(_ context.Context, c content.Content) (content.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.contents[c.ID]
	if !ok {
		return content.Content{}, content.ErrNotFound
	}
	orig.Title = c.Title
	orig.File = c.File
	orig.UnitID = c.UnitID
	orig.UpdatedAt = c.UpdatedAt
	return copyContent(orig), nil
}

func (repo *contentRepository) DeleteContent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.contents[id]; !ok {
		return content.ErrNotFound
	}
	delete(repo.db.contents, id)
	return nil
}

func (repo *contentRepository) PushContentComment(_ context.Context, id, commentID string) (content.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.contents[id]
	if !ok {
		return content.Content{}, content.ErrNotFound
	}
	c.Comments = pushString(c.Comments, commentID)
	return copyContent(c), nil
}

func (repo *contentRepository) PullContentComment(_ context.Context, id, commentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c, ok := repo.db.contents[id]; ok {
		c.Comments = core.RemoveString(c.Comments, commentID)
	}
	return nil
}

func (repo *contentRepository) CommentExists(_ context.Context, commentID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	_, ok := repo.db.comments[commentID]
	return ok, nil
}
