package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"newgenmusic/models"
	"newgenmusic/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestPostFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, PostFilter(storage.Filter{}))
}

func TestPostFilter_CategoryIsAnchoredAndQuoted(t *testing.T) {
	filter := PostFilter(storage.Filter{Category: "Hip.Hop"})

	re, ok := filter["category"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, `^Hip\.Hop$`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestPostFilter_SearchOrsTitleAndContent(t *testing.T) {
	featured := false
	filter := PostFilter(storage.Filter{Search: "drum", Type: models.PostTypeMusic, Featured: &featured})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	want := primitive.Regex{Pattern: "drum", Options: "i"}
	assert.Equal(t, bson.M{"title": want}, or[0])
	assert.Equal(t, bson.M{"content": want}, or[1])
	assert.Equal(t, models.PostTypeMusic, filter["type"])
	assert.Equal(t, false, filter["featured"])
}

// newTestDatabase connects to MONGODB_TEST_URI and returns a throwaway database.
func newTestDatabase(t *testing.T) *mongo.Database {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("newgenmusic_test_" + primitive.NewObjectID().Hex())
	require.NoError(t, EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestPostRepo_Integration(t *testing.T) {
	db := newTestDatabase(t)
	repos := New(db)
	ctx := context.Background()

	older := &models.Post{Title: "Drum Patterns", Content: "body", Category: "Music", Type: models.PostTypeMusic,
		Tags: []string{"drums", "beats"}, AuthorID: primitive.NewObjectID(), CreatedAt: storage.Now().Add(-time.Hour)}
	newer := &models.Post{Title: "Headline", Content: "about DRUMS", Category: "music", Type: models.PostTypeNews,
		Tags: []string{"beats"}, AuthorID: primitive.NewObjectID()}
	musical := &models.Post{Title: "Cats", Content: "show", Category: "Musical", AuthorID: primitive.NewObjectID()}
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

	tags, err := repos.Posts.DistinctTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beats", "drums"}, tags)

	older.Title = "Drum Patterns II"
	older.FeaturedImage = ""
	require.NoError(t, repos.Posts.Update(ctx, older))
	got, err := repos.Posts.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drum Patterns II", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, repos.Posts.Delete(ctx, older.ID))
	_, err = repos.Posts.GetByID(ctx, older.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repos.Posts.Delete(ctx, older.ID), storage.ErrNotFound)
}

func TestUserRepo_Integration(t *testing.T) {
	db := newTestDatabase(t)
	repos := New(db)
	ctx := context.Background()

	admin := &models.User{Username: "leeway", Email: "Admin@Example.com", Role: models.RoleAdmin, PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, admin))
	assert.ErrorIs(t, repos.Users.Create(ctx, &models.User{Email: "admin@example.com"}), storage.ErrDuplicate)

	got, err := repos.Users.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
}
