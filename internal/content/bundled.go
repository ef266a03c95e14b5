package content

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/prepline/prepline-backend/internal/document"
)

// tests.json is the statically bundled content shipped with the service
// (content source A). The API source supersedes it record by record.
//
//go:embed tests.json
var bundledJSON []byte

// LoadBundled decodes the bundled content file.
func LoadBundled() ([]document.BundledTest, error) {
	var file document.BundledFile
	if err := json.Unmarshal(bundledJSON, &file); err != nil {
		return nil, fmt.Errorf("decode bundled content: %w", err)
	}
	return file.Tests, nil
}
