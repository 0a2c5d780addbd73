package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStorage_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStorage(dir)
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "report_pol-1_123.txt", []byte("content"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), url)

	data, err := os.ReadFile(filepath.Join(dir, "report_pol-1_123.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestNewFSStorage_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	_, err := NewFSStorage(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
