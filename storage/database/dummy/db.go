package dummydb

import (
	"sort"
	"sync"

	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
)

// DB is an in-memory database. A single lock guards every table so that repositories
// may look across tables.
type DB struct {
	sync.RWMutex
	users      map[string]*user.User
	units      map[string]*unit.Unit
	activities map[string]*activity.Activity
	contents   map[string]*content.Content
	comments   map[string]*comment.Comment
}

func Open() (*DB, error) {
	db := &DB{
		users:      make(map[string]*user.User),
		units:      make(map[string]*unit.Unit),
		activities: make(map[string]*activity.Activity),
		contents:   make(map[string]*content.Content),
		comments:   make(map[string]*comment.Comment),
	}
	return db, nil
}

// Flush empties every table.
func (db *DB) Flush() {
	db.Lock()
	defer db.Unlock()
	db.users = make(map[string]*user.User)
	db.units = make(map[string]*unit.Unit)
	db.activities = make(map[string]*activity.Activity)
	db.contents = make(map[string]*content.Content)
	db.comments = make(map[string]*comment.Comment)
}

// sortedKeys returns the ids of a table in creation order (object ids grow over time).
func sortedKeys(n int, each func(func(id string))) []string {
	ids := make([]string, 0, n)
	each(func(id string) { ids = append(ids, id) })
	sort.Strings(ids)
	return ids
}

func cloneStrings(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func pushString(list []string, s string) []string {
	return append(cloneStrings(list), s)
}
