package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/pkg/logger"
	_ "modernc.org/sqlite"
)

// fixed-width UTC timestamps so that text comparison orders by time
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ReportRecord is one stored METAR lookup
type ReportRecord struct {
	ID          int64         `json:"id"`
	AirportCode string        `json:"airport_code"`
	RawText     string        `json:"raw_metar"`
	Decoded     *metar.Report `json:"decoded_data"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// ReportStorage is a SQLite-based history of fetched reports
type ReportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewReportStorage opens (or creates) the database at dbPath
func NewReportStorage(dbPath string, log *logger.Logger) (*ReportStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	storage := &ReportStorage{
		db:     db,
		logger: storageLogger,
	}
	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// Close closes the database connection
func (s *ReportStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *ReportStorage) initDB() error {
	s.logger.Info("Initializing database schema")

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS metar_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			airport_code TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			decoded_json TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metar_reports table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_metar_reports_airport_code ON metar_reports(airport_code)`)
	if err != nil {
		return fmt.Errorf("failed to create airport_code index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_metar_reports_fetched_at ON metar_reports(fetched_at)`)
	if err != nil {
		return fmt.Errorf("failed to create fetched_at index: %w", err)
	}

	return nil
}

// StoreReport stores a report and returns its row ID
func (s *ReportStorage) StoreReport(record *ReportRecord) (int64, error) {
	decoded, err := json.Marshal(record.Decoded)
	if err != nil {
		return 0, fmt.Errorf("failed to encode decoded report: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO metar_reports (airport_code, raw_text, decoded_json, fetched_at) VALUES (?, ?, ?, ?)`,
		strings.ToUpper(record.AirportCode),
		record.RawText,
		string(decoded),
		record.FetchedAt.UTC().Format(timestampFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	s.logger.Debug("Stored METAR report",
		logger.String("airport", record.AirportCode),
		logger.Int64("id", id))

	return id, nil
}

// GetHistory returns up to limit reports for an airport, newest first
func (s *ReportStorage) GetHistory(airportCode string, limit int) ([]*ReportRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, airport_code, raw_text, decoded_json, fetched_at
		FROM metar_reports
		WHERE airport_code = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT ?`,
		strings.ToUpper(airportCode), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query report history: %w", err)
	}
	defer rows.Close()

	records := []*ReportRecord{}
	for rows.Next() {
		record, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report history: %w", err)
	}

	return records, nil
}

// GetLatest returns the newest report for an airport, or nil when none is stored
func (s *ReportStorage) GetLatest(airportCode string) (*ReportRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, airport_code, raw_text, decoded_json, fetched_at
		FROM metar_reports
		WHERE airport_code = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1`,
		strings.ToUpper(airportCode),
	)

	record, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// PruneOlderThan deletes reports fetched before cutoff
func (s *ReportStorage) PruneOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM metar_reports WHERE fetched_at < ?`,
		cutoff.UTC().Format(timestampFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned reports: %w", err)
	}

	if n > 0 {
		s.logger.Info("Pruned old METAR reports",
			logger.Int64("deleted", n),
			logger.Time("cutoff", cutoff))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*ReportRecord, error) {
	var record ReportRecord
	var decoded, fetchedAt string

	if err := row.Scan(&record.ID, &record.AirportCode, &record.RawText, &decoded, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	var err error
	record.FetchedAt, err = time.Parse(timestampFormat, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}

	if err := json.Unmarshal([]byte(decoded), &record.Decoded); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}

	return &record, nil
}
