package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(u *user.User) user.User {
	cp := *u
	cp.Roles = cloneStrings(u.Roles)
	cp.UnitsUnlocked = cloneStrings(u.UnitsUnlocked)
	cp.UnitsCompleted = cloneStrings(u.UnitsCompleted)
	cp.ContentsRead = cloneStrings(u.ContentsRead)
	cp.ActivitiesCompleted = cloneStrings(u.ActivitiesCompleted)
	return cp
}

func (repo *userRepository) query() []user.User {
	ids := sortedKeys(len(repo.db.users), func(f func(string)) {
		for id := range repo.db.users {
			f(id)
		}
	})
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, copyUser(repo.db.users[id]))
	}
	return users
}

func (repo *userRepository) find(match func(u *user.User) bool) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, u := range repo.db.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if core.ContainsString(excludedIDs, usr.ID) {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = core.NewID()
	stored := copyUser(&usr)
	repo.db.users[usr.ID] = &stored
	return copyUser(&stored), nil
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter.Match(usr) {
			users = append(users, usr)
		}
	}
	sortUsers(users, orderings)
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.ID == id })
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.Email == email })
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.Username == username || u.Email == username })
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.FullName = usr.FullName
	orig.Username = usr.Username
	orig.Email = usr.Email
	orig.Roles = cloneStrings(usr.Roles)
	orig.Status = usr.Status
	orig.PasswordHash = usr.PasswordHash
	orig.UpdatedAt = usr.UpdatedAt
	orig.LastLogin = usr.LastLogin
	return copyUser(orig), nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}

func (repo *userRepository) AddUserProgress(_ context.Context, id string, field user.ProgressField, refID string) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr := copyUser(orig)
	usr.AddProgress(field, refID)
	*orig = usr
	return copyUser(orig), nil
}

// sortUsers sorts users in place, on the first ordering first.
func sortUsers(users []user.User, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			cmp := compareUsers(users[i], users[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "full_name":
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "last_login":
		return compareTimes(a.LastLogin.UnixNano(), b.LastLogin.UnixNano())
	}
	return 0
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
