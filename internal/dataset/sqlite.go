package dataset

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const datasetTable = "dataset"

// SQLiteSink writes the dataset into an SQLite database, one TEXT
// column per dataset column. Rows accumulate in a transaction that
// commits on each flush, so interrupting a build keeps whole
// repositories rather than torn ones.
type SQLiteSink struct {
	db     *sql.DB
	tx     *sql.Tx
	insert string
}

// NewSQLiteSink opens or creates the database file. The dataset
// table itself is recreated when the header is written, mirroring the
// CSV sink's overwrite semantics.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) WriteHeader(columns []string) error {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		names[i] = columnName(col)
		marks[i] = "?"
	}
	if _, err := s.db.Exec("DROP TABLE IF EXISTS " + datasetTable); err != nil {
		return fmt.Errorf("dataset: drop table: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s TEXT)", datasetTable, strings.Join(names, " TEXT, "))
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("dataset: create table: %w", err)
	}
	s.insert = fmt.Sprintf("INSERT INTO %s VALUES (%s)", datasetTable, strings.Join(marks, ", "))
	return nil
}

func (s *SQLiteSink) WriteRow(row []string) error {
	if s.insert == "" {
		return fmt.Errorf("dataset: row written before header")
	}
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("dataset: begin transaction: %w", err)
		}
		s.tx = tx
	}
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	if _, err := s.tx.Exec(s.insert, args...); err != nil {
		return fmt.Errorf("dataset: insert row: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Flush() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("dataset: commit: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// columnName maps a dataset column to an SQL identifier: the type
// annotation after # is dropped and :: becomes a single underscore.
func columnName(col string) string {
	if i := strings.Index(col, "#"); i >= 0 {
		col = col[:i]
	}
	return strings.ReplaceAll(col, "::", "_")
}
