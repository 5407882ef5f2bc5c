package client

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")

	store, err := NewIdentityStore(path)
	require.NoError(t, err)

	id, err := store.UserID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "anon-"), id)
	assert.Len(t, id, len("anon-")+anonymousIDLength)

	again, err := store.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, store.SetUsername("neo"))

	reopened, err := NewIdentityStore(path)
	require.NoError(t, err)
	reloaded, err := reopened.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, reloaded)
	assert.Equal(t, "neo", reopened.Username())
}

func TestIdentityStore_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")

	first, err := NewIdentityStore(path)
	require.NoError(t, err)
	second, err := NewIdentityStore(path)
	require.NoError(t, err)

	id, err := first.UserID()
	require.NoError(t, err)
	other, err := second.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, other)
}
