package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
)

// InboxStore writes raw messages into the inbox directory, named by content
// hash. A message already present in the inbox or in one of the archive
// subdirectories is not written again.
type InboxStore struct {
	inboxDir string
	archives []string
}

func NewInboxStore(inboxDir string, archiveDirs ...string) *InboxStore {
	return &InboxStore{inboxDir: inboxDir, archives: archiveDirs}
}

// Store reports whether msg was new.
func (s *InboxStore) Store(msg Message) (string, bool, error) {
	sum := sha256.Sum256(msg.Raw)
	name := hex.EncodeToString(sum[:])[:32] + ".eml"

	if err := os.MkdirAll(s.inboxDir, 0o755); err != nil {
		return "", false, err
	}

	for _, dir := range append([]string{s.inboxDir}, s.archives...) {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return filepath.Join(dir, name), false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, err
		}
	}

	// write under a dot name so the listener never sees a partial file
	path := filepath.Join(s.inboxDir, name)
	tmp := filepath.Join(s.inboxDir, "."+name+".tmp")
	if err := os.WriteFile(tmp, msg.Raw, 0o644); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", false, err
	}
	return path, true, nil
}
