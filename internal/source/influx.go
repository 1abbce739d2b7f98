package source

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/sirupsen/logrus"
)

// InfluxSource reads spot prices from an InfluxDB bucket. The query covers
// local midnight of today through the end of tomorrow.
type InfluxSource struct {
	URL      string
	Token    string
	Org      string
	Bucket   string
	Location *time.Location
	Currency string

	// Measurement/field/tag filter; defaults cover the electricity_pricing
	// schema.
	Measurement string
	Field       string
	PriceArea   string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *InfluxSource) CurrencySymbol() string { return s.Currency }

func (s *InfluxSource) FetchRawRecords(ctx context.Context) ([]map[string]any, error) {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	nowFn := s.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := start.Add(48 * time.Hour)

	measurement := s.Measurement
	if measurement == "" {
		measurement = "electricity_pricing"
	}
	field := s.Field
	if field == "" {
		field = "unit_price"
	}

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: %s, stop: %s)
		|> filter(fn: (r) => r._measurement == %q and r.area == %q and r._field == %q)
		|> yield(name: "prices")
	`, s.Bucket, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		measurement, s.PriceArea, field)
	logrus.Tracef("Running query=%s", query)

	client := influxdb2.NewClient(s.URL, s.Token)
	defer client.Close()

	result, err := client.QueryAPI(s.Org).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	var records []map[string]any
	for result.Next() {
		rec := result.Record()
		if v, ok := rec.Value().(float64); ok {
			records = append(records, map[string]any{
				"start_time": rec.Time().In(loc).Format(time.RFC3339),
				"price":      v,
			})
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error parsing Influx result: %w", result.Err())
	}
	logrus.Debugf("Fetched %d price records from InfluxDB", len(records))
	return records, nil
}
