package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/educryption/core"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

// Statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Progress lists held by a User.
const (
	FieldUnitsUnlocked       ProgressField = "units_unlocked"
	FieldUnitsCompleted      ProgressField = "units_completed"
	FieldContentsRead        ProgressField = "contents_read"
	FieldActivitiesCompleted ProgressField = "activities_completed"
)

var (
	AllRoles = []string{RoleAdmin, RoleStudent, RoleTeacher} // sorted

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type ProgressField string

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                  string    `json:"id"`
	FullName            string    `json:"full_name"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	Roles               []string  `json:"roles"`
	Status              string    `json:"status"`
	PasswordHash        []byte    `json:"-"`
	UnitsUnlocked       []string  `json:"units_unlocked"`
	UnitsCompleted      []string  `json:"units_completed"`
	ContentsRead        []string  `json:"contents_read"`
	ActivitiesCompleted []string  `json:"activities_completed"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
	LastLogin           time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsActive() bool {
	return u.Status != StatusInactive
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// IsStaff reports whether the user may manage units, activities and contents.
func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.IsTeacher()
}

// Progress returns the id list stored under field.
func (u *User) Progress(field ProgressField) []string {
	switch field {
	case FieldUnitsUnlocked:
		return u.UnitsUnlocked
	case FieldUnitsCompleted:
		return u.UnitsCompleted
	case FieldContentsRead:
		return u.ContentsRead
	case FieldActivitiesCompleted:
		return u.ActivitiesCompleted
	}
	return nil
}

// AddProgress adds id to the list stored under field, unless already present.
func (u *User) AddProgress(field ProgressField, id string) {
	if core.ContainsString(u.Progress(field), id) {
		return
	}
	switch field {
	case FieldUnitsUnlocked:
		u.UnitsUnlocked = append(u.UnitsUnlocked, id)
	case FieldUnitsCompleted:
		u.UnitsCompleted = append(u.UnitsCompleted, id)
	case FieldContentsRead:
		u.ContentsRead = append(u.ContentsRead, id)
	case FieldActivitiesCompleted:
		u.ActivitiesCompleted = append(u.ActivitiesCompleted, id)
	}
}

func (u *User) HasUnlocked(unitID string) bool {
	return core.ContainsString(u.UnitsUnlocked, unitID)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FullName        string   `json:"full_name" yaml:"full_name" validate:"omitempty,max=100"`
	Username        string   `json:"username" yaml:"username" validate:"required,min=3,max=30,alphanum_"`
	Email           string   `json:"email" yaml:"email" validate:"required,email"`
	Password        string   `json:"password" yaml:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" yaml:"-" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" yaml:"roles" validate:"omitempty,allroles"`
	Status          string   `json:"status" yaml:"status" validate:"omitempty,oneof=active inactive"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Status = core.CleanString(nu.Status, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	FullName        string   `json:"full_name" validate:"omitempty,max=100"`
	Username        string   `json:"username" validate:"omitempty,min=3,max=30,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Status          string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	fullName := core.CleanString(uu.FullName)
	if fullName != "" {
		uu.FullName = fullName
	} else {
		uu.FullName = origUsr.FullName
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	uu.Status = core.CleanString(uu.Status, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	rp.UID = core.CleanString(rp.UID)
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	Status      string    `query:"status"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Status == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// Match reports whether usr satisfies every set field of the filter.
// Search does a case-insensitive match on one of FullName, Username or Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.FullName), search) ||
			strings.Contains(usr.Username, search) ||
			strings.Contains(usr.Email, search)) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		var hasRole bool
		for _, role := range qf.Roles {
			if core.ContainsString(usr.Roles, role) {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}
	if qf.Status != "" && usr.Status != qf.Status {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

// OrderingFields are the fields users may be ordered by.
var OrderingFields = []string{"full_name", "username", "email", "created_at", "last_login"}
