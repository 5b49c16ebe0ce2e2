package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/storage/database"
	dummydb "github.com/trezcool/educryption/storage/database/dummy"
	mongorepos "github.com/trezcool/educryption/storage/database/mongodb"
	pgrepos "github.com/trezcool/educryption/storage/database/postgres"
)

type engine struct {
	name string
	open func(t *testing.T) *database.Repos
}

// engines returns the memory engine, plus mongodb and postgres when their test servers are
// configured.
func engines() []engine {
	engs := []engine{{name: core.EngineMemory, open: openMemory}}
	if uri := os.Getenv("TEST_MONGODB_URI"); uri != "" {
		engs = append(engs, engine{name: core.EngineMongoDB, open: openMongo(uri)})
	}
	if url := os.Getenv("TEST_POSTGRES_URL"); url != "" {
		engs = append(engs, engine{name: core.EnginePostgres, open: openPostgres(url)})
	}
	return engs
}

func openMemory(t *testing.T) *database.Repos {
	db, err := dummydb.Open()
	require.NoError(t, err)
	return database.NewMemoryRepos(db)
}

func openMongo(uri string) func(t *testing.T) *database.Repos {
	return func(t *testing.T) *database.Repos {
		ctx := context.Background()
		conf := &core.Config{Database: core.DatabaseConfig{URI: uri, Name: "educryption_test"}}

		db, err := mongorepos.Open(ctx, conf)
		require.NoError(t, err)
		require.NoError(t, db.Drop(ctx))
		require.NoError(t, db.EnsureIndexes(ctx))
		t.Cleanup(func() {
			_ = db.Drop(ctx)
			_ = db.Close(ctx)
		})
		return database.NewMongoRepos(db)
	}
}

func openPostgres(url string) func(t *testing.T) *database.Repos {
	return func(t *testing.T) *database.Repos {
		db, err := sqlx.Open("postgres", url)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db.DB))
		_, err = db.Exec(`TRUNCATE users, units, activities, contents, comments`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		return &database.Repos{
			Users:      pgrepos.NewUserRepository(db),
			Units:      pgrepos.NewUnitRepository(db),
			Activities: pgrepos.NewActivityRepository(db),
			Contents:   pgrepos.NewContentRepository(db),
			Comments:   pgrepos.NewCommentRepository(db),
		}
	}
}

// now is rounded to the millisecond, the precision every engine keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func ids(n int, id func(i int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = id(i)
	}
	return out
}

func TestRepos_users(t *testing.T) {
	for _, eng := range engines() {
		t.Run(eng.name, func(t *testing.T) {
			ctx := context.Background()
			repo := eng.open(t).Users

			newUser := func(name, uname, email, role, status string) user.User {
				ts := now()
				usr, err := repo.CreateUser(ctx, user.User{
					FullName:     name,
					Username:     uname,
					Email:        email,
					Roles:        []string{role},
					Status:       status,
					PasswordHash: []byte("hash"),
					CreatedAt:    ts,
					UpdatedAt:    ts,
				})
				require.NoError(t, err)
				require.True(t, core.IsValidID(usr.ID))
				time.Sleep(2 * time.Millisecond)
				return usr
			}
			bob := newUser("Bob Marley", "bob", "bob@domain.com", user.RoleTeacher, user.StatusActive)
			lie := newUser("Lie Kapita", "lie", "lie@domain.com", user.RoleStudent, user.StatusActive)
			ndog := newUser("Ndog Lukeni", "ndog", "ndog@domain.com", user.RoleStudent, user.StatusInactive)

			t.Run("uniqueness", func(t *testing.T) {
				assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "bob", "new@domain.com"))
				assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "new", "lie@domain.com"))
				assert.NoError(t, repo.CheckUniqueness(ctx, "bob", "bob@domain.com", bob.ID))
				assert.NoError(t, repo.CheckUniqueness(ctx, "new", "new@domain.com"))
			})

			t.Run("get", func(t *testing.T) {
				got, err := repo.GetUserByID(ctx, lie.ID)
				require.NoError(t, err)
				assert.Equal(t, "lie", got.Username)
				assert.Equal(t, []byte("hash"), got.PasswordHash)
				assert.Equal(t, []string{user.RoleStudent}, got.Roles)
				assert.Empty(t, got.UnitsUnlocked)

				got, err = repo.GetUserByEmail(ctx, "bob@domain.com")
				require.NoError(t, err)
				assert.Equal(t, bob.ID, got.ID)

				got, err = repo.GetUserByUsernameOrEmail(ctx, "ndog")
				require.NoError(t, err)
				assert.Equal(t, ndog.ID, got.ID)
				got, err = repo.GetUserByUsernameOrEmail(ctx, "ndog@domain.com")
				require.NoError(t, err)
				assert.Equal(t, ndog.ID, got.ID)

				_, err = repo.GetUserByID(ctx, core.NewID())
				assert.Equal(t, user.ErrNotFound, err)
				_, err = repo.GetUserByEmail(ctx, "unknown@domain.com")
				assert.Equal(t, user.ErrNotFound, err)
			})

			t.Run("filter", func(t *testing.T) {
				userIDs := func(users []user.User) []string {
					return ids(len(users), func(i int) string { return users[i].ID })
				}
				tests := []struct {
					name      string
					filter    user.QueryFilter
					orderings []core.DBOrdering
					want      []string
				}{
					{name: "all", want: []string{bob.ID, lie.ID, ndog.ID}},
					{name: "search", filter: user.QueryFilter{Search: "KAPITA"}, want: []string{lie.ID}},
					{name: "role", filter: user.QueryFilter{Roles: []string{user.RoleStudent}}, want: []string{lie.ID, ndog.ID}},
					{name: "status", filter: user.QueryFilter{Status: user.StatusInactive}, want: []string{ndog.ID}},
					{
						name:   "combined",
						filter: user.QueryFilter{Roles: []string{user.RoleStudent}, Status: user.StatusActive},
						want:   []string{lie.ID},
					},
					{
						name:      "ordered",
						orderings: []core.DBOrdering{{Field: "created_at", Ascending: false}},
						want:      []string{ndog.ID, lie.ID, bob.ID},
					},
					{name: "none", filter: user.QueryFilter{Search: "nobody"}, want: []string{}},
				}
				for _, tt := range tests {
					t.Run(tt.name, func(t *testing.T) {
						users, err := repo.FilterUsers(ctx, tt.filter, tt.orderings...)
						require.NoError(t, err)
						assert.Equal(t, tt.want, userIDs(users))
					})
				}
			})

			t.Run("update", func(t *testing.T) {
				usr := bob
				usr.FullName = "Robert Marley"
				usr.Roles = []string{user.RoleAdmin}
				usr.LastLogin = now()
				usr.UpdatedAt = now()
				_, err := repo.UpdateUser(ctx, usr)
				require.NoError(t, err)

				got, err := repo.GetUserByID(ctx, bob.ID)
				require.NoError(t, err)
				assert.Equal(t, "Robert Marley", got.FullName)
				assert.Equal(t, []string{user.RoleAdmin}, got.Roles)
				assert.True(t, usr.LastLogin.Equal(got.LastLogin))
				assert.True(t, bob.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("progress", func(t *testing.T) {
				unitID := core.NewID()
				got, err := repo.AddUserProgress(ctx, lie.ID, user.FieldUnitsUnlocked, unitID)
				require.NoError(t, err)
				assert.Equal(t, []string{unitID}, got.UnitsUnlocked)

				got, err = repo.AddUserProgress(ctx, lie.ID, user.FieldUnitsUnlocked, unitID)
				require.NoError(t, err)
				assert.Equal(t, []string{unitID}, got.UnitsUnlocked)

				contentID := core.NewID()
				got, err = repo.AddUserProgress(ctx, lie.ID, user.FieldContentsRead, contentID)
				require.NoError(t, err)
				assert.Equal(t, []string{contentID}, got.ContentsRead)
				assert.Equal(t, []string{unitID}, got.UnitsUnlocked)

				// progress survives profile updates
				got.FullName = "Lie"
				_, err = repo.UpdateUser(ctx, got)
				require.NoError(t, err)
				got, err = repo.GetUserByID(ctx, lie.ID)
				require.NoError(t, err)
				assert.Equal(t, []string{unitID}, got.UnitsUnlocked)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, repo.DeleteUsersByID(ctx, lie.ID, ndog.ID))
				users, err := repo.FilterUsers(ctx, user.QueryFilter{})
				require.NoError(t, err)
				require.Len(t, users, 1)
				assert.Equal(t, bob.ID, users[0].ID)
			})
		})
	}
}

func TestRepos_units(t *testing.T) {
	for _, eng := range engines() {
		t.Run(eng.name, func(t *testing.T) {
			ctx := context.Background()
			repos := eng.open(t)

			ts := now()
			u := unit.Unit{Title: "Ciphers", Activities: []string{}, Contents: []string{}, CreatedAt: ts, UpdatedAt: ts}
			require.NoError(t, u.SetUnlockKey("open-sesame"))
			u, err := repos.Units.CreateUnit(ctx, u)
			require.NoError(t, err)
			require.True(t, core.IsValidID(u.ID))

			got, err := repos.Units.GetUnit(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ciphers", got.Title)
			assert.True(t, got.CheckUnlockKey("open-sesame"))
			assert.Empty(t, got.Activities)

			_, err = repos.Units.GetUnit(ctx, core.NewID())
			assert.Equal(t, unit.ErrNotFound, err)

			a1, a2 := core.NewID(), core.NewID()
			_, err = repos.Units.PushUnitRef(ctx, u.ID, unit.FieldActivities, a1)
			require.NoError(t, err)
			got, err = repos.Units.PushUnitRef(ctx, u.ID, unit.FieldActivities, a2)
			require.NoError(t, err)
			assert.Equal(t, []string{a1, a2}, got.Activities)

			c1 := core.NewID()
			got, err = repos.Units.PushUnitRef(ctx, u.ID, unit.FieldContents, c1)
			require.NoError(t, err)
			assert.Equal(t, []string{c1}, got.Contents)

			require.NoError(t, repos.Units.PullUnitRef(ctx, u.ID, unit.FieldActivities, a1))
			require.NoError(t, repos.Units.PullUnitRef(ctx, core.NewID(), unit.FieldActivities, a1))
			got, err = repos.Units.GetUnit(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{a2}, got.Activities)

			got.Title = "Block Ciphers"
			got.UnlockKeyHash = nil
			got.UpdatedAt = now()
			_, err = repos.Units.UpdateUnit(ctx, got)
			require.NoError(t, err)
			got, err = repos.Units.GetUnit(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "Block Ciphers", got.Title)
			assert.False(t, got.HasUnlockKey())
			assert.Equal(t, []string{a2}, got.Activities)

			units, err := repos.Units.QueryUnits(ctx)
			require.NoError(t, err)
			assert.Len(t, units, 1)

			require.NoError(t, repos.Units.DeleteUnit(ctx, u.ID))
			units, err = repos.Units.QueryUnits(ctx)
			require.NoError(t, err)
			assert.Empty(t, units)
		})
	}
}

func TestRepos_activities(t *testing.T) {
	for _, eng := range engines() {
		t.Run(eng.name, func(t *testing.T) {
			ctx := context.Background()
			repo := eng.open(t).Activities

			unitID := core.NewID()
			create := func(title, unitID string) activity.Activity {
				ts := now()
				a, err := repo.CreateActivity(ctx, activity.Activity{Title: title, UnitID: unitID, CreatedAt: ts, UpdatedAt: ts})
				require.NoError(t, err)
				return a
			}
			quiz := create("Quiz", unitID)
			create("Free", "")

			all, err := repo.QueryActivities(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			byUnit, err := repo.QueryActivitiesByUnit(ctx, unitID)
			require.NoError(t, err)
			require.Len(t, byUnit, 1)
			assert.Equal(t, quiz.ID, byUnit[0].ID)

			quiz.Title = "Final Quiz"
			quiz.UpdatedAt = now()
			_, err = repo.UpdateActivity(ctx, quiz)
			require.NoError(t, err)
			got, err := repo.GetActivity(ctx, quiz.ID)
			require.NoError(t, err)
			assert.Equal(t, "Final Quiz", got.Title)
			assert.Equal(t, unitID, got.UnitID)

			require.NoError(t, repo.DeleteActivity(ctx, quiz.ID))
			_, err = repo.GetActivity(ctx, quiz.ID)
			assert.Equal(t, activity.ErrNotFound, err)
		})
	}
}

func TestRepos_contents(t *testing.T) {
	for _, eng := range engines() {
		t.Run(eng.name, func(t *testing.T) {
			ctx := context.Background()
			repos := eng.open(t)

			unitID := core.NewID()
			create := func(title, file string) content.Content {
				ts := now()
				c, err := repos.Contents.CreateContent(ctx, content.Content{
					Title: title, File: file, UnitID: unitID, Comments: []string{}, CreatedAt: ts, UpdatedAt: ts,
				})
				require.NoError(t, err)
				return c
			}
			slides := create("Slides", "uploads/contents/slides.pdf")
			create("Notes", "")

			byUnit, err := repos.Contents.QueryContentsByUnit(ctx, unitID)
			require.NoError(t, err)
			assert.Len(t, byUnit, 2)
			byUnit, err = repos.Contents.QueryContentsByUnit(ctx, core.NewID())
			require.NoError(t, err)
			assert.Empty(t, byUnit)

			files, err := repos.Contents.QueryContentFiles(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"uploads/contents/slides.pdf"}, files)

			ts := now()
			cmt, err := repos.Comments.CreateComment(ctx, comment.Comment{
				Text: "nice", UserID: core.NewID(), ContentID: slides.ID, References: []string{}, CreatedAt: ts, UpdatedAt: ts,
			})
			require.NoError(t, err)
			exists, err := repos.Contents.CommentExists(ctx, cmt.ID)
			require.NoError(t, err)
			assert.True(t, exists)
			exists, err = repos.Contents.CommentExists(ctx, core.NewID())
			require.NoError(t, err)
			assert.False(t, exists)

			got, err := repos.Contents.PushContentComment(ctx, slides.ID, cmt.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{cmt.ID}, got.Comments)
			require.NoError(t, repos.Contents.PullContentComment(ctx, slides.ID, cmt.ID))
			got, err = repos.Contents.GetContent(ctx, slides.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Comments)

			got.File = ""
			got.UpdatedAt = now()
			_, err = repos.Contents.UpdateContent(ctx, got)
			require.NoError(t, err)
			files, err = repos.Contents.QueryContentFiles(ctx)
			require.NoError(t, err)
			assert.Empty(t, files)

			require.NoError(t, repos.Contents.DeleteContent(ctx, slides.ID))
			_, err = repos.Contents.GetContent(ctx, slides.ID)
			assert.Equal(t, content.ErrNotFound, err)
		})
	}
}

func TestRepos_comments(t *testing.T) {
	for _, eng := range engines() {
		t.Run(eng.name, func(t *testing.T) {
			ctx := context.Background()
			repo := eng.open(t).Comments

			contentID, userID := core.NewID(), core.NewID()
			create := func(text, parentID string) comment.Comment {
				ts := now()
				c, err := repo.CreateComment(ctx, comment.Comment{
					Text: text, UserID: userID, ContentID: contentID, CommentID: parentID,
					References: []string{}, CreatedAt: ts, UpdatedAt: ts,
				})
				require.NoError(t, err)
				return c
			}
			commentIDs := func(comments []comment.Comment) []string {
				return ids(len(comments), func(i int) string { return comments[i].ID })
			}

			root := create("root", "")
			reply := create("reply", root.ID)
			require.NoError(t, repo.PushCommentReference(ctx, root.ID, reply.ID))
			leaf := create("leaf", reply.ID)
			require.NoError(t, repo.PushCommentReference(ctx, reply.ID, leaf.ID))

			top, err := repo.QueryCommentsByContent(ctx, contentID)
			require.NoError(t, err)
			assert.Equal(t, []string{root.ID}, commentIDs(top))

			byUser, err := repo.QueryCommentsByUser(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, []string{root.ID, reply.ID, leaf.ID}, commentIDs(byUser))

			replies, err := repo.QueryReplies(ctx, root.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{reply.ID}, commentIDs(replies))

			got, err := repo.GetComment(ctx, root.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{reply.ID}, got.References)

			// deleting the middle comment detaches it from both sides
			require.NoError(t, repo.PullCommentReference(ctx, root.ID, reply.ID))
			require.NoError(t, repo.UnsetReplyParent(ctx, reply.ID))
			require.NoError(t, repo.DeleteComment(ctx, reply.ID))

			got, err = repo.GetComment(ctx, root.ID)
			require.NoError(t, err)
			assert.Empty(t, got.References)
			got, err = repo.GetComment(ctx, leaf.ID)
			require.NoError(t, err)
			assert.Empty(t, got.CommentID)
			_, err = repo.GetComment(ctx, reply.ID)
			assert.Equal(t, comment.ErrNotFound, err)

			got.Text = "edited"
			got.UpdatedAt = now()
			_, err = repo.UpdateComment(ctx, got)
			require.NoError(t, err)
			got, err = repo.GetComment(ctx, leaf.ID)
			require.NoError(t, err)
			assert.Equal(t, "edited", got.Text)
		})
	}
}
