package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/klingnet-rgb/config"
	"github.com/Klingon-tech/klingnet-rgb/internal/storage"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openDB opens the configured stash backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Stash.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger:
		dir := cfg.StashDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating stash dir: %w", err)
		}
		db, err := storage.NewBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open stash at %s: %w", dir, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown stash backend %q", cfg.Stash.Backend)
	}
}

// stashPrefix namespaces the stash by network.
func stashPrefix(cfg *config.Config) []byte {
	return []byte(cfg.Network.String() + "/")
}
