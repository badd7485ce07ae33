// Package store keeps the watch-list and alert history as JSON snapshots on disk.
// Each mutation rewrites the whole file through a temp file and rename.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// loadSnapshot decodes path into v. A missing file leaves v untouched.
// A malformed file is logged and reported as not loaded, so callers start empty.
func loadSnapshot(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		log.WithField("path", path).Warnf("⚠️ Could not read state file, starting empty: %v", err)
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.WithField("path", path).Warnf("⚠️ Malformed state file, starting empty: %v", err)
		return false
	}
	return true
}

func writeSnapshot(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode snapshot")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "could not create state directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "could not write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "could not close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "could not replace %s", path)
	}
	return nil
}
