package loader

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/warehouse"
)

const timeLayout = "2006-01-02 15:04:05"

// provenance columns appended to every ingested row
var provenanceColumns = []string{"partition_time", "source_file", "file_load_time"}

// Result summarizes one completed load
type Result struct {
	SourceFile string        `json:"source_file"`
	RowsLoaded uint64        `json:"rows_loaded"`
	BadRecords uint64        `json:"bad_records"`
	Duration   time.Duration `json:"duration"`
}

// Stats is the post-load verification summary
type Stats struct {
	TotalRows    uint64 `json:"total_rows,string"`
	SourceFiles  uint64 `json:"source_files,string"`
	EarliestLoad string `json:"earliest_load"`
	LatestLoad   string `json:"latest_load"`
}

// Loader streams CSV exports into the raw relation in batches
type Loader struct {
	log    logrus.FieldLogger
	client warehouse.ClientInterface
	config *Config
}

// NewLoader creates a new loader
func NewLoader(log logrus.FieldLogger, client warehouse.ClientInterface, config *Config) (*Loader, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Loader{
		log:    log.WithField("service", "loader"),
		client: client,
		config: config,
	}, nil
}

// Load ingests the CSV file at path (plain or gzip-compressed) into the raw
// relation. Every row carries the provenance columns alongside the business
// columns; malformed rows are skipped up to the configured tolerance.
func (l *Loader) Load(ctx context.Context, path string) (*Result, error) {
	started := time.Now()

	file, err := os.Open(path) //nolint:gosec // operator-provided source path
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			l.log.WithError(closeErr).Debug("Failed to close source file")
		}
	}()

	var reader io.Reader = file

	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", gzErr)
		}

		defer func() {
			if closeErr := gz.Close(); closeErr != nil {
				l.log.WithError(closeErr).Debug("Failed to close gzip stream")
			}
		}()

		reader = gz
	}

	columns, records, err := readHeader(csv.NewReader(reader))
	if err != nil {
		return nil, err
	}

	if err := l.provision(ctx, columns); err != nil {
		return nil, err
	}

	result := &Result{SourceFile: filepath.Base(path)}
	loadTime := time.Now().UTC().Format(timeLayout)

	l.log.WithFields(logrus.Fields{
		"source":  result.SourceFile,
		"columns": len(columns),
		"target":  l.tableRef(),
	}).Info("Starting data load")

	if err := l.stream(ctx, records, columns, result, loadTime); err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)

	l.log.WithFields(logrus.Fields{
		"rows":        result.RowsLoaded,
		"bad_records": result.BadRecords,
		"duration":    result.Duration,
	}).Info("Data load completed")

	return result, nil
}

func (l *Loader) stream(ctx context.Context, records *csv.Reader, columns []string, result *Result, loadTime string) error {
	batch := make([]map[string]interface{}, 0, l.config.BatchSize)

	for {
		record, err := records.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			result.BadRecords++
			if result.BadRecords > uint64(l.config.MaxBadRecords) {
				return fmt.Errorf("%w: %d", ErrTooManyBadRecords, result.BadRecords)
			}

			continue
		}

		batch = append(batch, l.buildRow(columns, record, result.SourceFile, loadTime))

		if len(batch) >= l.config.BatchSize {
			if err := l.flush(ctx, batch); err != nil {
				return err
			}

			result.RowsLoaded += uint64(len(batch))
			batch = batch[:0]

			if result.RowsLoaded%uint64(l.config.ProgressInterval) == 0 {
				l.log.WithField("rows", result.RowsLoaded).Info("Load progress")
			}
		}
	}

	if err := l.flush(ctx, batch); err != nil {
		return err
	}

	result.RowsLoaded += uint64(len(batch))

	return nil
}

func (l *Loader) flush(ctx context.Context, batch []map[string]interface{}) error {
	if len(batch) == 0 {
		return nil
	}

	if err := l.client.BulkInsert(ctx, l.tableRef(), batch); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	return nil
}

// buildRow maps one CSV record onto the column set plus provenance values.
// Empty cells become nulls so the staging filter and quality checks see them.
func (l *Loader) buildRow(columns []string, record []string, sourceFile, loadTime string) map[string]interface{} {
	row := make(map[string]interface{}, len(columns)+len(provenanceColumns))

	for i, column := range columns {
		if record[i] == "" {
			row[column] = nil
		} else {
			row[column] = record[i]
		}
	}

	row["partition_time"] = loadTime
	row["source_file"] = sourceFile
	row["file_load_time"] = loadTime

	return row
}

// provision creates the raw database and table if missing. Business columns
// arrive untyped from the CSV header and land as nullable strings; typing is
// the staging layer's job.
func (l *Loader) provision(ctx context.Context, columns []string) error {
	if err := warehouse.EnsureDatabase(ctx, l.client, l.config.Database); err != nil {
		return err
	}

	defs := make([]string, 0, len(columns)+len(provenanceColumns))
	for _, column := range columns {
		defs = append(defs, fmt.Sprintf("`%s` Nullable(String)", column))
	}

	defs = append(defs,
		"`partition_time` Nullable(DateTime)",
		"`source_file` String",
		"`file_load_time` Nullable(DateTime)",
	)

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(coalesce(partition_time, toDateTime(0)))
ORDER BY (source_file, file_load_time)
SETTINGS allow_nullable_key = 1`, l.tableRef(), strings.Join(defs, ",\n    "))

	if _, err := l.client.Execute(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create raw table: %w", err)
	}

	return nil
}

// Verify queries the post-load shape of the raw relation: totals, distinct
// source files and the load-time range.
func (l *Loader) Verify(ctx context.Context) (*Stats, error) {
	query := fmt.Sprintf(`SELECT
	count() AS total_rows,
	uniqExact(source_file) AS source_files,
	toString(min(file_load_time)) AS earliest_load,
	toString(max(file_load_time)) AS latest_load
FROM %s`, l.tableRef())

	var stats Stats
	if err := l.client.QueryOne(ctx, query, &stats); err != nil {
		return nil, fmt.Errorf("failed to verify load: %w", err)
	}

	return &stats, nil
}

func (l *Loader) tableRef() string {
	return fmt.Sprintf("%s.%s", l.config.Database, l.config.Table)
}

// readHeader consumes the CSV header and returns the sanitized column names
// and the positioned reader.
func readHeader(records *csv.Reader) ([]string, *csv.Reader, error) {
	header, err := records.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptySource
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	if len(header) == 0 {
		return nil, nil, ErrNoBusinessColumns
	}

	columns := make([]string, 0, len(header))

	for _, name := range header {
		column := sanitizeColumn(name)

		for _, reserved := range provenanceColumns {
			if column == reserved {
				return nil, nil, fmt.Errorf("%w: %s", ErrReservedColumnName, column)
			}
		}

		columns = append(columns, column)
	}

	return columns, records, nil
}

// sanitizeColumn normalizes a CSV header cell into a warehouse identifier
func sanitizeColumn(name string) string {
	var b strings.Builder

	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte('_')
		}
	}

	column := b.String()
	if column == "" {
		column = "unnamed"
	}

	return column
}
