package content

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educryption/core"
)

// Content is a learning material of a Unit. File is the stored upload path, if any.
type Content struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	File      string    `json:"file,omitempty"`
	UnitID    string    `json:"unit_id"`
	Comments  []string  `json:"comments"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// File is an uploaded file waiting to be stored.
type File struct {
	Name   string // original filename
	Reader io.Reader
}

// NewContent contains information needed to create a new Content.
type NewContent struct {
	Title  string `json:"title" form:"title" validate:"required,max=200"`
	UnitID string `json:"unit_id" form:"unit_id" validate:"required"`
	File   *File  `json:"-" form:"-"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.UnitID = core.CleanString(nc.UnitID)
	return validate.Struct(nc)
}

// UpdateContent defines what information may be provided to modify an existing Content.
// A new UnitID moves the content to that unit; a new File replaces the stored one.
type UpdateContent struct {
	Title  string `json:"title" form:"title" validate:"omitempty,max=200"`
	UnitID string `json:"unit_id" form:"unit_id"`
	File   *File  `json:"-" form:"-"`
}

func (uc *UpdateContent) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.UnitID = core.CleanString(uc.UnitID)
	return validate.Struct(uc)
}
