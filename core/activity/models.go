package activity

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educryption/core"
)

// Activity is a gradable exercise, optionally attached to a Unit.
type Activity struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UnitID    string    `json:"unit_id,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewActivity contains information needed to create a new Activity.
type NewActivity struct {
	Title  string `json:"title" validate:"required,max=200"`
	UnitID string `json:"unit_id"`
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.UnitID = core.CleanString(na.UnitID)
	return validate.Struct(na)
}

// UpdateActivity defines what information may be provided to modify an existing Activity.
type UpdateActivity struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

func (ua *UpdateActivity) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	return validate.Struct(ua)
}
