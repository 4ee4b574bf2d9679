package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// ErrEmptyDataset is returned when the uploaded CSV has no bytes at all.
var ErrEmptyDataset = errors.New("no columns to parse from file")

// DatasetLoader reads CSV files into tables using an in-memory DuckDB.
type DatasetLoader struct {
	tempDir     string
	threads     int
	memoryLimit string
	logger      *slog.Logger
}

// DatasetOptions tunes the DuckDB instance used for loading.
type DatasetOptions struct {
	TempDir     string
	Threads     int
	MemoryLimit string
}

// NewDatasetLoader creates a loader that spools CSV input under opts.TempDir.
func NewDatasetLoader(opts DatasetOptions, logger *slog.Logger) *DatasetLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "256MB"
	}
	return &DatasetLoader{
		tempDir:     opts.TempDir,
		threads:     opts.Threads,
		memoryLimit: opts.MemoryLimit,
		logger:      logger,
	}
}

// Load parses the CSV read from r. The first row is the header; every cell is
// returned as text, unchanged. Empty cells become empty strings.
func (l *DatasetLoader) Load(ctx context.Context, name string, r io.Reader) (*models.Dataset, error) {
	spool, err := os.CreateTemp(l.tempDir, "dataset-*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}
	spoolPath := spool.Name()
	defer os.Remove(spoolPath)

	size, err := io.Copy(spool, r)
	spool.Close()
	if err != nil {
		return nil, fmt.Errorf("spooling csv: %w", err)
	}
	if size == 0 {
		return nil, ErrEmptyDataset
	}

	db, err := l.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf(
		`SELECT * FROM read_csv('%s', header = true, delim = ',', quote = '"', escape = '"', all_varchar = true)`,
		strings.ReplaceAll(spoolPath, "'", "''"),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	dataset := &models.Dataset{
		FileName: name,
		Columns:  columns,
		Rows:     make([][]string, 0),
	}

	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(dataset.Rows)+1, err)
		}
		row := make([]string, len(columns))
		for i, cell := range cells {
			row[i] = cell.String
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	l.logger.Debug("dataset loaded", "file", name, "columns", len(columns), "rows", len(dataset.Rows))
	return dataset, nil
}

func (l *DatasetLoader) open() (*sql.DB, error) {
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", l.memoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", l.threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
