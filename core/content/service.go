package content

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/unit"
)

// IDKind names content ids in InvalidIDError.
const IDKind = "Content"

// UploadFolder is where content files are stored, relative to the uploads root.
const UploadFolder = "contents"

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("contentNotFound")
	ErrNoneFound       = core.NewNotFoundError("noContentFound")
	ErrCommentNotFound = core.NewNotFoundError("commentNotFound")
)

type (
	Repository interface {
		CreateContent(ctx context.Context, c Content) (Content, error)
		QueryContents(ctx context.Context) ([]Content, error)
		QueryContentsByUnit(ctx context.Context, unitID string) ([]Content, error)
		// QueryContentFiles returns every stored file path referenced by a content.
		QueryContentFiles(ctx context.Context) ([]string, error)
		// GetContent returns ErrNotFound when no Content has the id.
		GetContent(ctx context.Context, id string) (Content, error)
		UpdateContent(ctx context.Context, c Content) (Content, error)
		DeleteContent(ctx context.Context, id string) error
		PushContentComment(ctx context.Context, id, commentID string) (Content, error)
		PullContentComment(ctx context.Context, id, commentID string) error
		CommentExists(ctx context.Context, commentID string) (bool, error)
	}

	// FileStore persists uploaded files.
	FileStore interface {
		// SaveFile stores r under folder with a random name keeping the extension of
		// filename, and returns the stored path.
		SaveFile(folder, filename string, r io.Reader) (string, error)
		RemoveFile(path string) error
	}

	Service struct {
		repo   Repository
		units  *unit.Service
		files  FileStore
		logger core.Logger
	}
)

func NewService(repo Repository, units *unit.Service, files FileStore, logger core.Logger) *Service {
	return &Service{repo: repo, units: units, files: files, logger: logger}
}

func (svc *Service) saveFile(f *File) (string, error) {
	path, err := svc.files.SaveFile(UploadFolder, f.Name, f.Reader)
	return path, errors.Wrap(err, "saving file")
}

func (svc *Service) removeFile(path string) {
	if path == "" {
		return
	}
	if err := svc.files.RemoveFile(path); err != nil {
		svc.logger.Error("removing content file", errors.Wrap(err, path))
	}
}

// Create saves a new Content in an existing unit and appends it to the unit's contents.
func (svc *Service) Create(ctx context.Context, nc NewContent) (Content, error) {
	if _, err := svc.units.GetByID(ctx, nc.UnitID); err != nil {
		return Content{}, err
	}

	now := time.Now().UTC()
	c := Content{
		Title:     nc.Title,
		UnitID:    nc.UnitID,
		Comments:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nc.File != nil {
		path, err := svc.saveFile(nc.File)
		if err != nil {
			return Content{}, err
		}
		c.File = path
	}

	created, err := svc.repo.CreateContent(ctx, c)
	if err != nil {
		svc.removeFile(c.File)
		return Content{}, err
	}
	c = created
	if _, err = svc.units.AddContent(ctx, c.UnitID, c.ID); err != nil {
		return Content{}, errors.Wrap(err, "adding content to unit")
	}
	return c, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Content, error) {
	contents, err := svc.repo.QueryContents(ctx)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, ErrNoneFound
	}
	return contents, nil
}

// QueryByUnit lists the contents of a unit, possibly none.
func (svc *Service) QueryByUnit(ctx context.Context, unitID string) ([]Content, error) {
	if err := core.ValidateID(unitID, unit.IDKind); err != nil {
		return nil, err
	}
	return svc.repo.QueryContentsByUnit(ctx, unitID)
}

// ReferencedFiles lists the stored files still used by a content.
func (svc *Service) ReferencedFiles(ctx context.Context) ([]string, error) {
	return svc.repo.QueryContentFiles(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Content, error) {
	if err := core.ValidateID(id, IDKind); err != nil {
		return Content{}, err
	}
	return svc.repo.GetContent(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateContent) (Content, error) {
	c, err := svc.GetByID(ctx, id)
	if err != nil {
		return Content{}, err
	}

	oldUnitID := c.UnitID
	if uc.UnitID != "" && uc.UnitID != c.UnitID {
		if _, err = svc.units.GetByID(ctx, uc.UnitID); err != nil {
			return Content{}, err
		}
		c.UnitID = uc.UnitID
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}

	oldFile := c.File
	if uc.File != nil {
		if c.File, err = svc.saveFile(uc.File); err != nil {
			return Content{}, err
		}
	}

	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateContent(ctx, c)
	if err != nil {
		return Content{}, err
	}

	if c.File != oldFile {
		svc.removeFile(oldFile)
	}
	if c.UnitID != oldUnitID {
		if err = svc.units.RemoveContent(ctx, oldUnitID, c.ID); err != nil {
			return Content{}, errors.Wrap(err, "removing content from unit")
		}
		if _, err = svc.units.AddContent(ctx, c.UnitID, c.ID); err != nil {
			return Content{}, errors.Wrap(err, "adding content to unit")
		}
	}
	return c, nil
}

// Delete removes the Content, its reference from its unit and its stored file.
func (svc *Service) Delete(ctx context.Context, id string) error {
	c, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.units.RemoveContent(ctx, c.UnitID, c.ID); err != nil {
		return errors.Wrap(err, "removing content from unit")
	}
	if err = svc.repo.DeleteContent(ctx, id); err != nil {
		return err
	}
	svc.removeFile(c.File)
	return nil
}

// AddComment appends an existing comment to the comments of an existing content.
func (svc *Service) AddComment(ctx context.Context, contentID, commentID string) (Content, error) {
	if err := core.ValidateID(contentID, IDKind); err != nil {
		return Content{}, err
	}
	if err := core.ValidateID(commentID, "Comment"); err != nil {
		return Content{}, err
	}
	if _, err := svc.repo.GetContent(ctx, contentID); err != nil {
		return Content{}, err
	}
	exists, err := svc.repo.CommentExists(ctx, commentID)
	if err != nil {
		return Content{}, err
	}
	if !exists {
		return Content{}, ErrCommentNotFound
	}
	return svc.repo.PushContentComment(ctx, contentID, commentID)
}

// RemoveComment pulls a comment from the comments of a content.
func (svc *Service) RemoveComment(ctx context.Context, contentID, commentID string) error {
	if contentID == "" {
		return nil
	}
	return svc.repo.PullContentComment(ctx, contentID, commentID)
}
