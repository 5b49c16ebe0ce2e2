package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educryption/core"
)

func TestNewUserValidation(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	newUser := func(pwd string, roles ...string) NewUser {
		return NewUser{
			FullName:        "Lie Student",
			Username:        "lie",
			Email:           "lie@domain.com",
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		}
	}
	tests := []struct {
		name string
		data NewUser
		want map[string]string
	}{
		{name: "valid", data: newUser("Pa55-w0rd!", RoleStudent, RoleTeacher)},
		{name: "too short", data: newUser("Pa5-w0!"), want: map[string]string{"password": pwdMinLenText}},
		{name: "whitespace", data: newUser("Pa55 w0rd!"), want: map[string]string{"password": pwdNoSpaceText}},
		{name: "all numeric", data: newUser("1234567890"), want: map[string]string{"password": pwdNotAllNumText}},
		{name: "no special", data: newUser("Pa55w0rdd"), want: map[string]string{"password": pwdComplexityText}},
		{name: "no upper", data: newUser("pa55-w0rd!"), want: map[string]string{"password": pwdComplexityText}},
		{name: "similar to email", data: newUser("Lie@domain.c0m"), want: map[string]string{"password": pwdAttrSimText}},
		{name: "common", data: newUser("P@ssw0rd"), want: map[string]string{"password": pwdNoCommonText}},
		{name: "invalid role", data: newUser("Pa55-w0rd!", "king:"), want: map[string]string{"roles": allRolesText}},
		{
			name: "invalid username",
			data: NewUser{Username: "li e", Email: "lol", Password: "Pa55-w0rd!", PasswordConfirm: "Pa55-w0rd!"},
			want: map[string]string{
				"username": "only alphanumeric characters, underscores and hyphens are allowed",
				"email":    "email must be a valid email address",
			},
		},
		{
			name: "mismatch",
			data: NewUser{Username: "lie", Email: "lie@domain.com", Password: "Pa55-w0rd!", PasswordConfirm: "Pa55-w0rd?"},
			want: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "err = %v", err)
			got := make(map[string]string, len(vErrs))
			for _, e := range vErrs {
				got[e.Field()] = e.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateUserValidation(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	assert.NoError(t, validate.Struct(UpdateUser{Username: "lie"}), "password is optional")
	assert.Error(t, validate.Struct(UpdateUser{Password: "Pa55-w0rd!"}), "confirmation required")
	assert.Error(t, validate.Struct(UpdateUser{Password: "weak", PasswordConfirm: "weak"}))
	assert.NoError(t, validate.Struct(UpdateUser{Password: "Pa55-w0rd!", PasswordConfirm: "Pa55-w0rd!"}))
	assert.Error(t, validate.Struct(UpdateUser{Status: "sleeping"}))
}

func TestUserRoles(t *testing.T) {
	admin := User{Roles: []string{RoleAdmin}}
	teacher := User{Roles: []string{RoleTeacher, RoleStudent}}
	student := User{Roles: []string{RoleStudent}}

	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsStaff())
	assert.False(t, teacher.IsAdmin())
	assert.True(t, teacher.IsTeacher())
	assert.True(t, teacher.IsStaff())
	assert.True(t, student.IsStudent())
	assert.False(t, student.IsStaff())

	assert.Equal(t, 30, MaxRolePriority(admin.Roles))
	assert.Equal(t, 20, MaxRolePriority(teacher.Roles))
	assert.Equal(t, 0, MaxRolePriority(nil))
}

func TestUserProgress(t *testing.T) {
	unitID, contentID := core.NewID(), core.NewID()
	var usr User

	assert.False(t, usr.HasUnlocked(unitID))
	usr.AddProgress(FieldUnitsUnlocked, unitID)
	usr.AddProgress(FieldUnitsUnlocked, unitID)
	usr.AddProgress(FieldContentsRead, contentID)

	assert.True(t, usr.HasUnlocked(unitID))
	assert.Equal(t, []string{unitID}, usr.Progress(FieldUnitsUnlocked))
	assert.Equal(t, []string{contentID}, usr.Progress(FieldContentsRead))
	assert.Empty(t, usr.Progress(FieldUnitsCompleted))
}

func TestQueryFilterMatch(t *testing.T) {
	usr := User{FullName: "Lie Student", Username: "lie", Email: "lie@school.org", Roles: []string{RoleStudent}, Status: StatusActive}

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", want: true},
		{name: "search name", filter: QueryFilter{Search: "STUD"}, want: true},
		{name: "search email", filter: QueryFilter{Search: "school"}, want: true},
		{name: "search miss", filter: QueryFilter{Search: "teach"}},
		{name: "role", filter: QueryFilter{Roles: []string{RoleAdmin, RoleStudent}}, want: true},
		{name: "role miss", filter: QueryFilter{Roles: []string{RoleAdmin}}},
		{name: "status", filter: QueryFilter{Status: StatusActive}, want: true},
		{name: "status miss", filter: QueryFilter{Status: StatusInactive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(usr))
		})
	}
}
