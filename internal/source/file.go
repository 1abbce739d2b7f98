package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource loads price records from a JSON file, for local inspection of
// rendering without a live database. The file is either a bare array of
// records or an object with a "prices" (or "data") array.
type FileSource struct {
	Path     string
	Currency string
}

func (s *FileSource) CurrencySymbol() string { return s.Currency }

func (s *FileSource) FetchRawRecords(_ context.Context) ([]map[string]any, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse price file %s: %w", s.Path, err)
	}
	for _, key := range []string{"prices", "data"} {
		if inner, ok := wrapped[key]; ok {
			if err := json.Unmarshal(inner, &records); err != nil {
				return nil, fmt.Errorf("parse %q in price file %s: %w", key, s.Path, err)
			}
			return records, nil
		}
	}
	return nil, fmt.Errorf("no price records found in %s", s.Path)
}
