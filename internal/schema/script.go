// filepath: internal/schema/script.go
package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"backoffice/internal/db"
	"backoffice/internal/shared"

	"github.com/sirupsen/logrus"
)

// EmbeddedSource is the source name reported for the compiled-in script.
const EmbeddedSource = "embedded"

// ScriptCandidates lists the filesystem locations searched for the base
// schema script: configured paths first, then the source tree and
// packaged layouts.
func ScriptCandidates(configured []string) []string {
	candidates := append([]string{}, configured...)
	candidates = append(candidates,
		filepath.Join("db", db.SchemaFile),
		filepath.Join("internal", "db", db.SchemaFile),
	)
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), db.SchemaFile))
	}
	candidates = append(candidates, "/app/db/"+db.SchemaFile)
	return candidates
}

// LoadScript returns the first non-empty schema script among the
// candidates, falling back to the copy embedded in the binary.
func LoadScript(configured []string, logger logrus.FieldLogger) (script string, source string, err error) {
	for _, path := range ScriptCandidates(configured) {
		content, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.WithError(err).WithField("path", path).Warn("Schema script candidate unreadable")
			}
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			logger.WithField("path", path).Warn("Schema script candidate is empty")
			continue
		}
		return string(content), path, nil
	}

	content, err := fs.ReadFile(db.FS, db.SchemaFile)
	if err != nil || strings.TrimSpace(string(content)) == "" {
		return "", "", fmt.Errorf("no usable schema script: %w", shared.ErrScriptNotFound)
	}
	return string(content), EmbeddedSource, nil
}
