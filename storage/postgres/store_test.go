package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"newgenmusic/database"
	"newgenmusic/models"
	"newgenmusic/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%drum%", likePattern("drum"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, likePattern(`c:\d`))
}

func TestRowRoundTripKeepsIDs(t *testing.T) {
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		Title:     "t",
		Tags:      []string{"a", "b"},
		AuthorID:  primitive.NewObjectID(),
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	got := toPostRow(post).toModel()
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, post.AuthorID, got.AuthorID)
	assert.Equal(t, post.Tags, got.Tags)
	assert.Equal(t, post.CreatedAt, got.CreatedAt)

	empty := (&postRow{}).toModel()
	assert.Equal(t, []string{}, empty.Tags)
}

// newTestRepos needs a disposable database in POSTGRES_TEST_DSN.
func newTestRepos(t *testing.T) *storage.Repositories {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := database.ConnectPostgres(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.Exec("TRUNCATE posts, users, push_subscriptions").Error)

	repos := New(db)
	t.Cleanup(func() { _ = repos.Close(context.Background()) })
	return repos
}

func TestPostRepo_Integration(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	older := &models.Post{Title: "Drum Patterns", Content: "body", Category: "Music", Type: models.PostTypeMusic,
		Tags: []string{"drums", "beats"}, AuthorID: primitive.NewObjectID(), CreatedAt: storage.Now().Add(-time.Hour)}
	newer := &models.Post{Title: "Headline", Content: "about DRUMS", Category: "music", Type: models.PostTypeNews,
		Tags: []string{"beats"}, AuthorID: primitive.NewObjectID()}
	musical := &models.Post{Title: "Cats 100%", Content: "show", Category: "Musical", AuthorID: primitive.NewObjectID()}
	for _, p := range []*models.Post{older, newer, musical} {
		require.NoError(t, repos.Posts.Create(ctx, p))
	}

	posts, err := repos.Posts.List(ctx, storage.Filter{Category: "MUSIC"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)

	posts, err = repos.Posts.List(ctx, storage.Filter{Search: "drum"})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = repos.Posts.List(ctx, storage.Filter{Search: "0%"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, musical.ID, posts[0].ID)

	categories, err := repos.Posts.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Music", "Musical", "music"}, categories)

	tags, err := repos.Posts.DistinctTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beats", "drums"}, tags)

	author := older.AuthorID
	older.Title = "Drum Patterns II"
	older.AuthorID = primitive.NewObjectID()
	require.NoError(t, repos.Posts.Update(ctx, older))
	got, err := repos.Posts.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drum Patterns II", got.Title)
	assert.Equal(t, author, got.AuthorID)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, repos.Posts.Delete(ctx, older.ID))
	_, err = repos.Posts.GetByID(ctx, older.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserAndSubscriptionRepo_Integration(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	admin := &models.User{Username: "leeway", Email: "Admin@Example.com", Role: models.RoleAdmin, PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, admin))
	assert.ErrorIs(t, repos.Users.Create(ctx, &models.User{Email: "admin@example.com"}), storage.ErrDuplicate)

	got, err := repos.Users.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	sub := &models.PushSubscription{Endpoint: "https://push.example/1", P256dh: "a", Auth: "b"}
	require.NoError(t, repos.Subscriptions.Upsert(ctx, sub))
	again := &models.PushSubscription{Endpoint: "https://push.example/1", P256dh: "c", Auth: "d"}
	require.NoError(t, repos.Subscriptions.Upsert(ctx, again))
	assert.Equal(t, sub.ID, again.ID)
}
