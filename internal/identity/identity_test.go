package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirOf(p string) DirFunc {
	return func() (string, error) { return p, nil }
}

func TestCreatesAndPersists(t *testing.T) {
	root := t.TempDir()

	id := NewStore(dirOf(root), "Space Game", zerolog.Nop()).GetOrCreatePlayerID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, "Space Game", FileName))
	require.NoError(t, err)
	assert.Equal(t, id, string(b))

	again := NewStore(dirOf(root), "Space Game", zerolog.Nop()).GetOrCreatePlayerID()
	assert.Equal(t, id, again)
}

func TestReadsExistingFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "game"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "game", FileName), []byte("  fixed-id\n"), 0o644))

	assert.Equal(t, "fixed-id", NewStore(dirOf(root), "game", zerolog.Nop()).GetOrCreatePlayerID())
}

func TestEmptyFileIsReplaced(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "game"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "game", FileName), nil, 0o644))

	id := NewStore(dirOf(root), "game", zerolog.Nop()).GetOrCreatePlayerID()
	assert.NotEmpty(t, id)

	b, err := os.ReadFile(filepath.Join(root, "game", FileName))
	require.NoError(t, err)
	assert.Equal(t, id, string(b))
}

func TestFallsBackToEphemeralID(t *testing.T) {
	s := NewStore(func() (string, error) { return "", errors.New("sandboxed") }, "game", zerolog.Nop())

	id := s.GetOrCreatePlayerID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, s.GetOrCreatePlayerID(), "ephemeral id is stable for the process")
}

func TestUnwritableDirectoryFallsBack(t *testing.T) {
	root := t.TempDir()
	// product 경로를 파일로 막아 MkdirAll 이 실패하게 만든다.
	require.NoError(t, os.WriteFile(filepath.Join(root, "game"), []byte("x"), 0o644))

	id := NewStore(dirOf(root), "game", zerolog.Nop()).GetOrCreatePlayerID()
	assert.NotEmpty(t, id)
}

func TestSanitizeProductName(t *testing.T) {
	p, err := NewStore(dirOf("/prefs"), "a/b:c", zerolog.Nop()).Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/prefs", "a_b_c", FileName), p)

	_, err = NewStore(dirOf("/prefs"), "  ", zerolog.Nop()).Path()
	assert.Error(t, err)
}
