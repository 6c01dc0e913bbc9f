package stopcount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/travigo/stopdensity/pkg/dataset"
	"golang.org/x/exp/slices"
)

const partialFilePrefix = "all_stop_count_"

// PartialFilePath is where the counts of chunk n (1-based) of a date are stored
func PartialFilePath(dataDirectory string, date string, n int) string {
	return filepath.Join(dataDirectory, fmt.Sprintf("%s%s_%d.json", partialFilePrefix, date, n))
}

// ListPartialFiles finds the chunk files written for the date, ignoring backups
func ListPartialFiles(dataDirectory string, date string) ([]string, error) {
	entries, err := os.ReadDir(dataDirectory)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s_", partialFilePrefix, date)

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasSuffix(name, ".backup.json") {
			continue
		}

		files = append(files, filepath.Join(dataDirectory, name))
	}
	slices.Sort(files)

	return files, nil
}

func listStalePartialFiles(dataDirectory string, date string) ([]string, error) {
	files, err := ListPartialFiles(dataDirectory, date)
	if os.IsNotExist(err) {
		return nil, nil
	}

	return files, err
}

// removePartialFiles deletes the files and their backups, leaving keep in place
func removePartialFiles(files []string, keep string) error {
	for _, file := range files {
		if file == keep {
			continue
		}

		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing previous partial file: %w", err)
		}
		os.Remove(dataset.BackupPath(file))
	}

	return nil
}
