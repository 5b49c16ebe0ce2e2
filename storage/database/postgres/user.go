package pgrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
)

type userRow struct {
	ID                  string         `db:"id"`
	FullName            string         `db:"full_name"`
	Username            string         `db:"username"`
	Email               string         `db:"email"`
	Roles               pq.StringArray `db:"roles"`
	Status              string         `db:"status"`
	PasswordHash        []byte         `db:"password_hash"`
	UnitsUnlocked       pq.StringArray `db:"units_unlocked"`
	UnitsCompleted      pq.StringArray `db:"units_completed"`
	ContentsRead        pq.StringArray `db:"contents_read"`
	ActivitiesCompleted pq.StringArray `db:"activities_completed"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLogin           null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                  usr.ID,
		FullName:            usr.FullName,
		Username:            usr.Username,
		Email:               usr.Email,
		Roles:               stringArray(usr.Roles),
		Status:              usr.Status,
		PasswordHash:        usr.PasswordHash,
		UnitsUnlocked:       stringArray(usr.UnitsUnlocked),
		UnitsCompleted:      stringArray(usr.UnitsCompleted),
		ContentsRead:        stringArray(usr.ContentsRead),
		ActivitiesCompleted: stringArray(usr.ActivitiesCompleted),
		CreatedAt:           usr.CreatedAt.UTC(),
		UpdatedAt:           usr.UpdatedAt.UTC(),
		LastLogin:           null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:                  r.ID,
		FullName:            r.FullName,
		Username:            r.Username,
		Email:               r.Email,
		Roles:               fromArray(r.Roles),
		Status:              r.Status,
		PasswordHash:        r.PasswordHash,
		UnitsUnlocked:       fromArray(r.UnitsUnlocked),
		UnitsCompleted:      fromArray(r.UnitsCompleted),
		ContentsRead:        fromArray(r.ContentsRead),
		ActivitiesCompleted: fromArray(r.ActivitiesCompleted),
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) getRow(ctx context.Context, q string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	var rows []userRow
	q := `SELECT * FROM users WHERE (username = $1 OR email = $2) AND NOT (id = ANY($3)) LIMIT 2`
	if err := repo.db.SelectContext(ctx, &rows, q, username, email, stringArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = core.NewID()
	row := toUserRow(usr)
	q := `INSERT INTO users (id, full_name, username, email, roles, status, password_hash, units_unlocked,
			units_completed, contents_read, activities_completed, created_at, updated_at, last_login)
		VALUES (:id, :full_name, :username, :email, :roles, :status, :password_hash, :units_unlocked,
			:units_completed, :contents_read, :activities_completed, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewValidationError(errors.New("a user with this username or email already exists"))
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(full_name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if len(filter.Roles) > 0 {
		where = append(where, "roles && "+arg(pq.StringArray(filter.Roles)))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= "+arg(filter.CreatedTo.UTC()))
	}

	q := "SELECT * FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	var allowed []core.DBOrdering
	for _, ord := range orderings {
		if core.ContainsString(user.OrderingFields, ord.Field) {
			allowed = append(allowed, ord)
		}
	}
	q += orderBy(allowed)

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getRow(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getRow(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getRow(ctx, `SELECT * FROM users WHERE username = $1 OR email = $1 LIMIT 1`, username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	return repo.getRow(ctx,
		`UPDATE users SET full_name = $2, username = $3, email = $4, roles = $5, status = $6,
			password_hash = $7, updated_at = $8, last_login = $9
		WHERE id = $1 RETURNING *`,
		row.ID, row.FullName, row.Username, row.Email, row.Roles, row.Status,
		row.PasswordHash, row.UpdatedAt, row.LastLogin,
	)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting users")
}

func progressColumn(field user.ProgressField) (string, error) {
	switch field {
	case user.FieldUnitsUnlocked, user.FieldUnitsCompleted, user.FieldContentsRead, user.FieldActivitiesCompleted:
		return string(field), nil
	}
	return "", errors.Errorf("unknown progress field %q", field)
}

func (repo *userRepository) AddUserProgress(ctx context.Context, id string, field user.ProgressField, refID string) (user.User, error) {
	col, err := progressColumn(field)
	if err != nil {
		return user.User{}, err
	}
	return repo.getRow(ctx,
		`UPDATE users SET `+col+` = CASE WHEN $2 = ANY(`+col+`) THEN `+col+` ELSE array_append(`+col+`, $2) END
		WHERE id = $1 RETURNING *`,
		id, refID,
	)
}
