package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"crownworks/internal/config"
)

// StageUpload writes a fake staged upload into the config's upload directory
// and returns its path.
func StageUpload(t testing.TB, cfg *config.Config, name string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(cfg.Paths.UploadDir, 0o755); err != nil {
		t.Fatalf("mkdir upload dir: %v", err)
	}
	path := filepath.Join(cfg.Paths.UploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write staged upload: %v", err)
	}
	return path
}
