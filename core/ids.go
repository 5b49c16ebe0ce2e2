package core

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new object id in its hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a 24 characters hex object id.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// ValidateID returns an InvalidIDError naming kind when id is not a valid object id.
func ValidateID(id, kind string) error {
	if !IsValidID(id) {
		return NewInvalidIDError(kind)
	}
	return nil
}
