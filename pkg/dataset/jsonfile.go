package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("file does not exist")

// ReadJSON decodes the file at path into v, returning ErrNotFound when it is missing
func ReadJSON(path string, v interface{}) error {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(contents, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}

// WriteJSON writes v as indented JSON. An existing file is moved aside to its backup
// name first and put back if the new contents cannot be written.
func WriteJSON(path string, v interface{}) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	backupPath := BackupPath(path)
	hasBackup := false
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("backing up %s: %w", path, err)
		}
		hasBackup = true
	}

	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		if hasBackup {
			log.Warn().Str("file", path).Msg("Restoring backup after failed write")
			os.Rename(backupPath, path)
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

func BackupPath(path string) string {
	extension := filepath.Ext(path)
	return strings.TrimSuffix(path, extension) + ".backup" + extension
}
