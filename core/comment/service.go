package comment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/user"
)

// IDKind names comment ids in InvalidIDError.
const IDKind = "Comment"

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("commentNotFound")
	ErrNoneFound    = core.NewNotFoundError("noCommentFound")
	ErrNoReplyFound = core.NewNotFoundError("noReplyFound")
	ErrReplyOutside = core.NewUnprocessableError("replyNotInContent")
)

type (
	Repository interface {
		CreateComment(ctx context.Context, c Comment) (Comment, error)
		QueryComments(ctx context.Context) ([]Comment, error)
		// QueryCommentsByContent returns the top-level comments of a content.
		QueryCommentsByContent(ctx context.Context, contentID string) ([]Comment, error)
		QueryCommentsByUser(ctx context.Context, userID string) ([]Comment, error)
		QueryReplies(ctx context.Context, commentID string) ([]Comment, error)
		// GetComment returns ErrNotFound when no Comment has the id.
		GetComment(ctx context.Context, id string) (Comment, error)
		UpdateComment(ctx context.Context, c Comment) (Comment, error)
		DeleteComment(ctx context.Context, id string) error
		PushCommentReference(ctx context.Context, id, replyID string) error
		PullCommentReference(ctx context.Context, id, replyID string) error
		// UnsetReplyParent detaches every reply of the comment.
		UnsetReplyParent(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		users    user.ServiceInterface
		contents *content.Service
	}
)

func NewService(repo Repository, users user.ServiceInterface, contents *content.Service) *Service {
	return &Service{repo: repo, users: users, contents: contents}
}

// Create saves a new Comment. Its author, content and parent comment must exist; a reply
// is added to the references of its parent.
func (svc *Service) Create(ctx context.Context, nc NewComment) (Comment, error) {
	if err := core.ValidateID(nc.UserID, user.IDKind); err != nil {
		return Comment{}, err
	}
	if nc.ContentID != "" {
		if err := core.ValidateID(nc.ContentID, content.IDKind); err != nil {
			return Comment{}, err
		}
	}
	if nc.CommentID != "" {
		if err := core.ValidateID(nc.CommentID, IDKind); err != nil {
			return Comment{}, err
		}
	}

	usr, err := svc.users.GetByID(ctx, nc.UserID)
	if err != nil {
		return Comment{}, err
	}
	if nc.ContentID != "" {
		if _, err = svc.contents.GetByID(ctx, nc.ContentID); err != nil {
			return Comment{}, err
		}
	}
	if nc.CommentID != "" {
		parent, err := svc.repo.GetComment(ctx, nc.CommentID)
		if err != nil {
			return Comment{}, err
		}
		if parent.ContentID != nc.ContentID {
			return Comment{}, ErrReplyOutside
		}
	}

	now := time.Now().UTC()
	c, err := svc.repo.CreateComment(ctx, Comment{
		Text:       nc.Text,
		UserID:     nc.UserID,
		ContentID:  nc.ContentID,
		CommentID:  nc.CommentID,
		References: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Comment{}, err
	}

	if c.CommentID != "" {
		if err = svc.repo.PushCommentReference(ctx, c.CommentID, c.ID); err != nil {
			return Comment{}, errors.Wrap(err, "adding reply to parent comment")
		}
	}
	c.User = &Author{ID: usr.ID, Username: usr.Username}
	return c, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Comment, error) {
	comments, err := svc.repo.QueryComments(ctx)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, ErrNoneFound
	}
	return comments, nil
}

// QueryByContent returns the top-level comments of a content, with their authors.
func (svc *Service) QueryByContent(ctx context.Context, contentID string) ([]Comment, error) {
	if err := core.ValidateID(contentID, content.IDKind); err != nil {
		return nil, err
	}
	comments, err := svc.repo.QueryCommentsByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, ErrNoneFound
	}
	return svc.withAuthors(ctx, comments)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Comment, error) {
	if err := core.ValidateID(userID, user.IDKind); err != nil {
		return nil, err
	}
	comments, err := svc.repo.QueryCommentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, ErrNoneFound
	}
	return comments, nil
}

// QueryReplies returns the replies of a comment, with their authors.
func (svc *Service) QueryReplies(ctx context.Context, commentID string) ([]Comment, error) {
	if err := core.ValidateID(commentID, IDKind); err != nil {
		return nil, err
	}
	replies, err := svc.repo.QueryReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return nil, ErrNoReplyFound
	}
	return svc.withAuthors(ctx, replies)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Comment, error) {
	if err := core.ValidateID(id, IDKind); err != nil {
		return Comment{}, err
	}
	return svc.repo.GetComment(ctx, id)
}

func (svc *Service) Update(ctx context.Context, c Comment, uc UpdateComment) (Comment, error) {
	if uc.Text != "" {
		c.Text = uc.Text
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComment(ctx, c)
}

// Delete removes the comment from its parent references and from its content, detaches its
// replies, then deletes it.
func (svc *Service) Delete(ctx context.Context, c Comment) error {
	if c.CommentID != "" {
		if err := svc.repo.PullCommentReference(ctx, c.CommentID, c.ID); err != nil {
			return errors.Wrap(err, "removing reply from parent comment")
		}
	}
	if err := svc.contents.RemoveComment(ctx, c.ContentID, c.ID); err != nil {
		return errors.Wrap(err, "removing comment from content")
	}
	if err := svc.repo.UnsetReplyParent(ctx, c.ID); err != nil {
		return errors.Wrap(err, "detaching replies")
	}
	return svc.repo.DeleteComment(ctx, c.ID)
}

// withAuthors sets the author of each comment. Comments of deleted users keep a nil author.
func (svc *Service) withAuthors(ctx context.Context, comments []Comment) ([]Comment, error) {
	authors := make(map[string]*Author)
	for i, c := range comments {
		author, ok := authors[c.UserID]
		if !ok {
			usr, err := svc.users.GetByID(ctx, c.UserID)
			switch {
			case err == nil:
				author = &Author{ID: usr.ID, Username: usr.Username}
			case core.IsNotFound(err):
			default:
				return nil, errors.Wrap(err, "finding comment author")
			}
			authors[c.UserID] = author
		}
		comments[i].User = author
	}
	return comments, nil
}
