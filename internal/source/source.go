// Package source provides price data adapters. The engine consumes raw
// records and never caches; adapters decide how data is fetched.
package source

import "context"

// Source supplies raw price records for the normalizer.
type Source interface {
	FetchRawRecords(ctx context.Context) ([]map[string]any, error)
	CurrencySymbol() string
}
