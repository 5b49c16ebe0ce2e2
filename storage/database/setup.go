package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	dummydb "github.com/trezcool/educryption/storage/database/dummy"
	mongorepos "github.com/trezcool/educryption/storage/database/mongodb"
	pgrepos "github.com/trezcool/educryption/storage/database/postgres"
)

// Repos holds the repositories of one storage engine.
type Repos struct {
	Users      user.Repository
	Units      unit.Repository
	Activities activity.Repository
	Contents   content.Repository
	Comments   comment.Repository

	close func(ctx context.Context) error
}

// Close releases the engine connections.
func (r *Repos) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// Setup connects to the configured engine, prepares it (database, migrations or indexes)
// and returns its repositories.
func Setup(ctx context.Context, conf *core.Config) (*Repos, error) {
	switch conf.Database.Engine {
	case core.EngineMongoDB:
		return setUpMongo(ctx, conf)
	case core.EnginePostgres:
		return setUpPostgres(conf)
	case core.EngineMemory:
		db, _ := dummydb.Open()
		return NewMemoryRepos(db), nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func setUpMongo(ctx context.Context, conf *core.Config) (*Repos, error) {
	db, err := mongorepos.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return NewMongoRepos(db), nil
}

func setUpPostgres(conf *core.Config) (*Repos, error) {
	if err := CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := OpenPostgres(conf)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repos{
		Users:      pgrepos.NewUserRepository(db),
		Units:      pgrepos.NewUnitRepository(db),
		Activities: pgrepos.NewActivityRepository(db),
		Contents:   pgrepos.NewContentRepository(db),
		Comments:   pgrepos.NewCommentRepository(db),
		close:      func(context.Context) error { return db.Close() },
	}, nil
}

func NewMongoRepos(db *mongorepos.DB) *Repos {
	return &Repos{
		Users:      mongorepos.NewUserRepository(db),
		Units:      mongorepos.NewUnitRepository(db),
		Activities: mongorepos.NewActivityRepository(db),
		Contents:   mongorepos.NewContentRepository(db),
		Comments:   mongorepos.NewCommentRepository(db),
		close:      db.Close,
	}
}

func NewMemoryRepos(db *dummydb.DB) *Repos {
	return &Repos{
		Users:      dummydb.NewUserRepository(db),
		Units:      dummydb.NewUnitRepository(db),
		Activities: dummydb.NewActivityRepository(db),
		Contents:   dummydb.NewContentRepository(db),
		Comments:   dummydb.NewCommentRepository(db),
	}
}
