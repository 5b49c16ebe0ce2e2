// Package pgrepos implements the repositories on PostgreSQL with sqlx.
// Ids are generated like object ids, and id lists are stored as text[].
package pgrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Cause(err) == sql.ErrNoRows
}

func stringArray(list []string) pq.StringArray {
	if list == nil {
		return pq.StringArray{}
	}
	return list
}

func fromArray(arr pq.StringArray) []string {
	if arr == nil {
		return []string{}
	}
	return arr
}

// orderBy renders orderings as an ORDER BY clause, always ending with the id.
func orderBy(orderings []core.DBOrdering) string {
	clause := " ORDER BY "
	for _, ord := range orderings {
		clause += ord.String() + ", "
	}
	return clause + "id ASC"
}
