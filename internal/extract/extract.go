// Package extract resolves policy text from uploaded files. Document
// parsing beyond plain text is an external service's concern; this package
// only defines the collaborator boundary and a local-file implementation.
package extract

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// Extractor resolves the full text of a policy document.
type Extractor interface {
	Extract(ctx context.Context, policy *model.Policy) (string, error)
}

// FileExtractor reads plain-text policy files referenced by
// Policy.FileURL. file:// URLs and bare paths are both accepted.
type FileExtractor struct{}

// NewFileExtractor creates a FileExtractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract reads the policy's file and returns its contents.
func (e *FileExtractor) Extract(ctx context.Context, policy *model.Policy) (string, error) {
	if policy.FileURL == "" {
		return "", eris.New("extract: policy has no file_url")
	}

	path := strings.TrimPrefix(policy.FileURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", path)
	}
	return string(data), nil
}
