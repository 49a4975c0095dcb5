package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "session.json"))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := ports.Record{
		Token:           "tok1",
		TokenExpiration: "2030-01-01T00:00:00Z",
		CurrentUser:     `{"userId":"u1","email":"demo@site.test","fullName":"Demo","role":"Patient"}`,
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestStore_SaveReplacesWholeRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, ports.Record{Token: "a", TokenExpiration: "x", CurrentUser: "y"}))
	require.NoError(t, s.Save(ctx, ports.Record{Token: "b"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ports.Record{Token: "b"}, got)
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, ports.Record{Token: "a"}))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clearing twice is a no-op")

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestStore_LoadCorrupted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), dirMode))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), fileMode))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsDataCorruption(err))
}
