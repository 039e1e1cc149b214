package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Load(filepath.Join(t.TempDir(), "schedules.yaml"))
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Regular Day", []string{"08:30", "09:30"}))

	times, ok := s.Get("Regular Day")
	require.True(t, ok)
	assert.Equal(t, []string{"08:30", "09:30"}, times)

	_, ok = s.Get("Sports Day")
	assert.False(t, ok)
}

func TestCreatePersistsAcrossReload(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Sports Day", []string{"09:00", "10:15"}))

	reloaded, err := Load(s.path)
	require.NoError(t, err)
	times, ok := reloaded.Get("Sports Day")
	require.True(t, ok)
	assert.Equal(t, []string{"09:00", "10:15"}, times)
}

func TestNamesSorted(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Sports Day", []string{"09:00"}))
	require.NoError(t, s.Create("Exam Day", []string{"08:00"}))

	assert.Equal(t, []string{"Exam Day", "Sports Day"}, s.Names())
}

func TestRename(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Old", []string{"08:00"}))
	require.NoError(t, s.Rename("Old", "New"))

	_, ok := s.Get("Old")
	assert.False(t, ok)
	times, ok := s.Get("New")
	require.True(t, ok)
	assert.Equal(t, []string{"08:00"}, times)
}

func TestRenameMissing(t *testing.T) {
	s := tempStore(t)
	assert.Error(t, s.Rename("Nope", "Other"))
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Gone", []string{"08:00"}))
	require.NoError(t, s.Delete("Gone"))
	_, ok := s.Get("Gone")
	assert.False(t, ok)

	// deleting again is a no-op
	require.NoError(t, s.Delete("Gone"))
}

func TestRollbackOnWriteFailure(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Keep", []string{"08:00"}))
	s.path = t.TempDir() // persisting to a directory fails

	err := s.Create("New", []string{"09:00"})
	require.Error(t, err)
	_, ok := s.Get("New")
	assert.False(t, ok)
	times, ok := s.Get("Keep")
	require.True(t, ok)
	assert.Equal(t, []string{"08:00"}, times)
}

func TestGetReturnsCopy(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Create("Regular Day", []string{"08:30"}))
	times, _ := s.Get("Regular Day")
	times[0] = "23:59"

	again, _ := s.Get("Regular Day")
	assert.Equal(t, []string{"08:30"}, again)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::not yaml\n\t"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
