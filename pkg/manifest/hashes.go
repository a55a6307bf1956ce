package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"pairfetch/pkg/errors"
	"pairfetch/pkg/logger"
)

// HashTable maps a local filename to its expected perceptual hash
type HashTable map[string]string

// Expected returns the reference hash for filename, or "" when there is none
func (h HashTable) Expected(filename string) string {
	return h[filename]
}

// LoadHashes reads the hash table at path. An empty path yields an empty table.
// A path that does not exist is tolerated with a warning so the run can go on
// without validation. Malformed content is a parsing error.
func LoadHashes(path string, log logger.Logger) (HashTable, error) {
	if path == "" {
		return HashTable{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.OrNop(log).WithField("hash_file", path).Warn("Hash file not found, continuing without validation")
			return HashTable{}, nil
		}
		return nil, fmt.Errorf("failed to read hash file: %w", err)
	}

	table := HashTable{}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.NewParseError(-1, "hash file is not a JSON object of filename to hash", err)
	}

	return table, nil
}
