package unit

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/educryption/core"
)

// Reference lists held by a Unit.
const (
	FieldActivities RefField = "activities"
	FieldContents   RefField = "contents"
)

type RefField string

// Unit is a course module. Activities and Contents are ordered id lists.
type Unit struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	UnlockKeyHash []byte    `json:"-"`
	Activities    []string  `json:"activities"`
	Contents      []string  `json:"contents"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (u Unit) MarshalJSON() ([]byte, error) {
	type unit Unit
	if u.Activities == nil {
		u.Activities = []string{}
	}
	if u.Contents == nil {
		u.Contents = []string{}
	}
	return json.Marshal(struct {
		unit
		HasUnlockKey bool `json:"has_unlock_key"`
	}{unit(u), u.HasUnlockKey()})
}

func (u *Unit) SetUnlockKey(key string) error {
	if key == "" {
		u.UnlockKeyHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.UnlockKeyHash = hash
	return nil
}

func (u Unit) HasUnlockKey() bool {
	return len(u.UnlockKeyHash) > 0
}

// CheckUnlockKey reports whether key opens the unit. Units without a key open with any key.
func (u Unit) CheckUnlockKey(key string) bool {
	if !u.HasUnlockKey() {
		return true
	}
	return bcrypt.CompareHashAndPassword(u.UnlockKeyHash, []byte(key)) == nil
}

// HasActivity reports whether the activity is listed in the unit.
func (u Unit) HasActivity(id string) bool {
	return core.ContainsString(u.Activities, id)
}

// HasContent reports whether the content is listed in the unit.
func (u Unit) HasContent(id string) bool {
	return core.ContainsString(u.Contents, id)
}

// NewUnit contains information needed to create a new Unit.
type NewUnit struct {
	Title     string `json:"title" validate:"required,max=200"`
	UnlockKey string `json:"unlock_key" validate:"omitempty,min=4,max=100"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	nu.UnlockKey = core.CleanString(nu.UnlockKey)
	return validate.Struct(nu)
}

// UpdateUnit defines what information may be provided to modify an existing Unit.
// An empty Title keeps the current one; a nil UnlockKey keeps the current key and
// an empty one removes it.
type UpdateUnit struct {
	Title     string  `json:"title" validate:"omitempty,max=200"`
	UnlockKey *string `json:"unlock_key" validate:"omitempty,max=100"`
}

func (uu *UpdateUnit) Validate(validate *validator.Validate) error {
	uu.Title = core.CleanString(uu.Title)
	if uu.UnlockKey != nil {
		key := core.CleanString(*uu.UnlockKey)
		uu.UnlockKey = &key
	}
	return validate.Struct(uu)
}
