package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceBareArray(t *testing.T) {
	src := &FileSource{
		Path: writeFile(t, `[
			{"start_time": "2024-03-10T12:00:00Z", "price": 1.5},
			{"start_time": "2024-03-10T13:00:00Z", "price": 2.0}
		]`),
		Currency: "kr",
	}

	records, err := src.FetchRawRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1.5, records[0]["price"])
	assert.Equal(t, "kr", src.CurrencySymbol())
}

func TestFileSourceWrappedObject(t *testing.T) {
	for _, key := range []string{"prices", "data"} {
		src := &FileSource{Path: writeFile(t,
			`{"`+key+`": [{"startsAt": "2024-03-10T12:00:00Z", "total": 0.42}]}`)}

		records, err := src.FetchRawRecords(context.Background())
		require.NoError(t, err, "wrapper key %q", key)
		require.Len(t, records, 1)
		assert.Equal(t, 0.42, records[0]["total"])
	}
}

func TestFileSourceErrors(t *testing.T) {
	missing := &FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	_, err := missing.FetchRawRecords(context.Background())
	assert.Error(t, err)

	garbage := &FileSource{Path: writeFile(t, `not json`)}
	_, err = garbage.FetchRawRecords(context.Background())
	assert.Error(t, err)

	noRecords := &FileSource{Path: writeFile(t, `{"other": []}`)}
	_, err = noRecords.FetchRawRecords(context.Background())
	assert.Error(t, err)
}
