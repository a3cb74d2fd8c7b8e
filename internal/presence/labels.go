package presence

import (
	"encoding/json"
	"os"

	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/mac"
)

// loadPeople reads the people file: a flat JSON object mapping MAC
// addresses to display labels.
//
//	{
//	  "aa:bb:cc:dd:ee:ff": "Alice's phone",
//	  "11-22-33-44-55-66": "Kitchen tablet"
//	}
//
// The file is an optional, hand-maintained fallback for labels that
// haven't made it into the database. Failure is never fatal: a missing,
// unreadable, or malformed file degrades to an empty mapping. Keys are
// normalised; entries with invalid MACs are skipped.
func loadPeople(path string, logger *logging.Logger) map[string]string {
	labels := make(map[string]string)
	if path == "" {
		return labels
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("people file unreadable", "path", path, "error", err)
		}
		return labels
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("people file malformed, ignoring", "path", path, "error", err)
		return labels
	}

	for key, label := range raw {
		canonical, err := mac.Normalize(key)
		if err != nil {
			logger.Debug("skipping invalid MAC in people file", "key", key)
			continue
		}
		if label == "" {
			continue
		}
		labels[canonical] = label
	}

	return labels
}
