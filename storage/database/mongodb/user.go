package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
)

type userDocument struct {
	ID                  primitive.ObjectID   `bson:"_id"`
	FullName            string               `bson:"full_name"`
	Username            string               `bson:"username"`
	Email               string               `bson:"email"`
	Roles               []string             `bson:"roles"`
	Status              string               `bson:"status"`
	PasswordHash        []byte               `bson:"password_hash"`
	UnitsUnlocked       []primitive.ObjectID `bson:"units_unlocked"`
	UnitsCompleted      []primitive.ObjectID `bson:"units_completed"`
	ContentsRead        []primitive.ObjectID `bson:"contents_read"`
	ActivitiesCompleted []primitive.ObjectID `bson:"activities_completed"`
	CreatedAt           time.Time            `bson:"created_at"`
	UpdatedAt           time.Time            `bson:"updated_at"`
	LastLogin           time.Time            `bson:"last_login"`
}

func (d userDocument) toUser() user.User {
	return user.User{
		ID:                  d.ID.Hex(),
		FullName:            d.FullName,
		Username:            d.Username,
		Email:               d.Email,
		Roles:               d.Roles,
		Status:              d.Status,
		PasswordHash:        d.PasswordHash,
		UnitsUnlocked:       hexes(d.UnitsUnlocked),
		UnitsCompleted:      hexes(d.UnitsCompleted),
		ContentsRead:        hexes(d.ContentsRead),
		ActivitiesCompleted: hexes(d.ActivitiesCompleted),
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
		LastLogin:           d.LastLogin.UTC(),
	}
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{coll: db.db.Collection(usersCollection)}
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var doc userDocument
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	filter := bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}}
	if len(excludedIDs) > 0 {
		filter["_id"] = bson.M{"$nin": oids(excludedIDs)}
	}

	var docs []userDocument
	if err := findAll(ctx, repo.coll, filter, &docs, options.Find().SetLimit(2)); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, d := range docs {
		if d.Username == username {
			return user.ErrUsernameExists
		}
		if d.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc := userDocument{
		ID:                  primitive.NewObjectID(),
		FullName:            usr.FullName,
		Username:            usr.Username,
		Email:               usr.Email,
		Roles:               usr.Roles,
		Status:              usr.Status,
		PasswordHash:        usr.PasswordHash,
		UnitsUnlocked:       oids(usr.UnitsUnlocked),
		UnitsCompleted:      oids(usr.UnitsCompleted),
		ContentsRead:        oids(usr.ContentsRead),
		ActivitiesCompleted: oids(usr.ActivitiesCompleted),
		CreatedAt:           usr.CreatedAt,
		UpdatedAt:           usr.UpdatedAt,
		LastLogin:           usr.LastLogin,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, core.NewValidationError(errors.New("a user with this username or email already exists"))
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	query := bson.M{}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"full_name": pattern},
			bson.M{"username": pattern},
			bson.M{"email": pattern},
		}
	}
	if len(filter.Roles) > 0 {
		query["roles"] = bson.M{"$in": filter.Roles}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	created := bson.M{}
	if !filter.CreatedFrom.IsZero() {
		created["$gte"] = filter.CreatedFrom.UTC()
	}
	if !filter.CreatedTo.IsZero() {
		created["$lte"] = filter.CreatedTo.UTC()
	}
	if len(created) > 0 {
		query["created_at"] = created
	}

	sort := bson.D{}
	for _, ord := range orderings {
		direction := -1
		if ord.Ascending {
			direction = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: direction})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	var docs []userDocument
	if err := findAll(ctx, repo.coll, query, &docs, options.Find().SetSort(sort)); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"_id": oid(id)})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"email": email})
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": username}}})
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var doc userDocument
	update := bson.M{"$set": bson.M{
		"full_name":     usr.FullName,
		"username":      usr.Username,
		"email":         usr.Email,
		"roles":         usr.Roles,
		"status":        usr.Status,
		"password_hash": usr.PasswordHash,
		"updated_at":    usr.UpdatedAt,
		"last_login":    usr.LastLogin,
	}}
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(usr.ID)}, update, returnAfter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids(ids)}})
	return errors.Wrap(err, "deleting users")
}

func (repo *userRepository) AddUserProgress(ctx context.Context, id string, field user.ProgressField, refID string) (user.User, error) {
	var doc userDocument
	update := bson.M{"$addToSet": bson.M{string(field): oid(refID)}}
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid(id)}, update, returnAfter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "adding user progress")
	}
	return doc.toUser(), nil
}
