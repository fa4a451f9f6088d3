package backend

import (
	"context"
	"testing"

	"newgenmusic/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	repos, err := Open(context.Background(), &config.Config{Storage: config.StorageMemory})
	require.NoError(t, err)
	assert.NotNil(t, repos.Posts)
	assert.NotNil(t, repos.Users)
	assert.NotNil(t, repos.Subscriptions)
	assert.NoError(t, repos.Close(context.Background()))
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Storage: "redis"})
	assert.ErrorContains(t, err, "redis")
}
