package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/fetcher/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		reader, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, reader)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirDoesNotExist", func(t *testing.T) {
		_, err := local.New(local.Config{BaseDir: filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "macro.csv")
		require.NoError(t, os.WriteFile(file, []byte("a"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "exports"), 0o750))
	data := []byte("Año,PIB\n2021,\"4,5\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exports", "macro.csv"), data, 0o600))

	reader, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	t.Run("RelativePath", func(t *testing.T) {
		resp, err := reader.Fetch(context.Background(), dashboard.FetchRequest{URL: "file://exports/macro.csv"})
		require.NoError(t, err)
		assert.Equal(t, data, resp.Body)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("AbsolutePathInsideBase", func(t *testing.T) {
		resp, err := reader.Fetch(context.Background(), dashboard.FetchRequest{URL: "file://" + filepath.Join(dir, "exports", "macro.csv")})
		require.NoError(t, err)
		assert.Equal(t, data, resp.Body)
	})

	t.Run("Traversal", func(t *testing.T) {
		for _, raw := range []string{"file://../secret.csv", "file://exports/../../x", "file:///etc/passwd"} {
			_, err := reader.Fetch(context.Background(), dashboard.FetchRequest{URL: raw})
			assert.True(t, errors.Is(err, dashboard.ErrUnsupportedSource), raw)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := reader.Fetch(context.Background(), dashboard.FetchRequest{URL: "file://exports/cpi.csv"})
		assert.True(t, errors.Is(err, dashboard.ErrTransport))
	})

	t.Run("WrongScheme", func(t *testing.T) {
		_, err := reader.Fetch(context.Background(), dashboard.FetchRequest{URL: "https://example.com/a.csv"})
		assert.True(t, errors.Is(err, dashboard.ErrUnsupportedSource))
	})
}
