package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcomply/compliance-cli/internal/model"
)

func TestFileExtractor_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("policy body"), 0o644))

	e := NewFileExtractor()
	text, err := e.Extract(context.Background(), &model.Policy{FileURL: "file://" + path})
	require.NoError(t, err)
	assert.Equal(t, "policy body", text)
}

func TestFileExtractor_BarePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("bare"), 0o644))

	e := NewFileExtractor()
	text, err := e.Extract(context.Background(), &model.Policy{FileURL: path})
	require.NoError(t, err)
	assert.Equal(t, "bare", text)
}

func TestFileExtractor_NoURL(t *testing.T) {
	e := NewFileExtractor()
	_, err := e.Extract(context.Background(), &model.Policy{})
	assert.Error(t, err)
}

func TestFileExtractor_MissingFile(t *testing.T) {
	e := NewFileExtractor()
	_, err := e.Extract(context.Background(), &model.Policy{FileURL: filepath.Join(t.TempDir(), "absent.txt")})
	assert.Error(t, err)
}
