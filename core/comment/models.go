package comment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educryption/core"
)

// Comment is a message posted on a Content, or a reply to another Comment.
// References lists the ids of its replies.
type Comment struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	UserID     string    `json:"user_id"`
	ContentID  string    `json:"content_id,omitempty"`
	CommentID  string    `json:"comment_id,omitempty"`
	References []string  `json:"references"`
	User       *Author   `json:"user,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Author is the public part of the user who posted a Comment.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewComment contains information needed to create a new Comment.
type NewComment struct {
	Text      string `json:"text" validate:"required,max=5000"`
	UserID    string `json:"user_id" validate:"required"`
	ContentID string `json:"content_id"`
	CommentID string `json:"comment_id"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	nc.UserID = core.CleanString(nc.UserID)
	nc.ContentID = core.CleanString(nc.ContentID)
	nc.CommentID = core.CleanString(nc.CommentID)
	return validate.Struct(nc)
}

// UpdateComment defines what information may be provided to modify an existing Comment.
type UpdateComment struct {
	Text string `json:"text" validate:"omitempty,max=5000"`
}

func (uc *UpdateComment) Validate(validate *validator.Validate) error {
	uc.Text = core.CleanString(uc.Text)
	return validate.Struct(uc)
}
