package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/pkg/record"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
	entryColumns     = "id, timestamp_ns, namespace, method, url, headers_json, request_body, status_code, response_body, duration_ms, size, error"
)

type sqliteStore struct {
	db  *sql.DB
	cfg *config.HistoryConfig
	log logger.Logger
}

func newSQLiteStore(cfg *config.HistoryConfig, log logger.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("history path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	// One process, one writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", stmt, err)
		}
	}

	store := &sqliteStore{db: db, cfg: cfg, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    timestamp_ns INTEGER NOT NULL,
    namespace TEXT,
    method TEXT NOT NULL,
    url TEXT NOT NULL,
    headers_json TEXT,
    request_body BLOB,
    status_code INTEGER,
    response_body BLOB,
    duration_ms INTEGER,
    size INTEGER,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_ts ON history(timestamp_ns DESC);
CREATE INDEX IF NOT EXISTS idx_history_namespace_ts ON history(namespace, timestamp_ns DESC);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) Record(entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("history entry is nil")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	ts := entry.Timestamp.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	entry.Timestamp = ts
	if entry.Size == 0 {
		entry.Size = int64(len(entry.ResponseBody))
	}
	entry.Headers = record.RedactHeaders(entry.Headers)
	headers := entry.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "INSERT INTO history ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID,
		ts.UnixNano(),
		entry.Namespace,
		entry.Method,
		entry.URL,
		string(headersJSON),
		entry.RequestBody,
		entry.StatusCode,
		entry.ResponseBody,
		entry.DurationMs,
		entry.Size,
		entry.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}

	if err = s.prune(ctx, tx); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Debug("History entry recorded", "id", entry.ID, "status", entry.StatusCode)
	return entry, nil
}

func (s *sqliteStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.Retention > 0 {
		cutoff := time.Now().Add(-s.cfg.Retention).UTC().UnixNano()
		if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE timestamp_ns < ?", cutoff); err != nil {
			return fmt.Errorf("prune by retention: %w", err)
		}
	}
	if s.cfg.MaxRecords > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM history").Scan(&count); err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if excess := count - s.cfg.MaxRecords; excess > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE id IN (SELECT id FROM history ORDER BY timestamp_ns ASC LIMIT ?)", excess); err != nil {
				return fmt.Errorf("prune max records: %w", err)
			}
		}
	}
	return nil
}

func (s *sqliteStore) List(opts ListOptions) ([]*Entry, int, error) {
	ctx := context.Background()
	where, args := buildFilters(opts)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM history "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := strings.Builder{}
	query.WriteString("SELECT " + entryColumns + " FROM history ")
	query.WriteString(where)
	query.WriteString(" ORDER BY timestamp_ns DESC")

	listArgs := append([]interface{}{}, args...)
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		query.WriteString(" LIMIT ? OFFSET ?")
		listArgs = append(listArgs, opts.Limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Get returns nil and no error when id is unknown.
func (s *sqliteStore) Get(id string) (*Entry, error) {
	row := s.db.QueryRowContext(context.Background(), "SELECT "+entryColumns+" FROM history WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanEntry(scanner interface {
	Scan(dest ...interface{}) error
}) (*Entry, error) {
	var (
		id           string
		ts           int64
		ns           sql.NullString
		method       string
		url          string
		headersJSON  sql.NullString
		requestBody  []byte
		statusCode   sql.NullInt64
		responseBody []byte
		durationMs   sql.NullInt64
		size         sql.NullInt64
		errMsg       sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&ts,
		&ns,
		&method,
		&url,
		&headersJSON,
		&requestBody,
		&statusCode,
		&responseBody,
		&durationMs,
		&size,
		&errMsg,
	); err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &headers); err != nil {
			headers = map[string]string{}
		}
	}
	if len(headers) == 0 {
		headers = nil
	}

	return &Entry{
		ID:           id,
		Timestamp:    time.Unix(0, ts).UTC(),
		Namespace:    ns.String,
		Method:       method,
		URL:          url,
		Headers:      headers,
		RequestBody:  append([]byte(nil), requestBody...),
		StatusCode:   int(statusCode.Int64),
		ResponseBody: append([]byte(nil), responseBody...),
		DurationMs:   durationMs.Int64,
		Size:         size.Int64,
		Error:        errMsg.String,
	}, nil
}

func buildFilters(opts ListOptions) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if method := strings.TrimSpace(opts.Method); method != "" {
		clauses = append(clauses, "UPPER(method) = UPPER(?)")
		args = append(args, method)
	}
	if ns := strings.Trim(strings.TrimSpace(opts.Namespace), "/"); ns != "" {
		clauses = append(clauses, "(namespace = ? OR namespace LIKE ?)")
		args = append(args, ns, ns+"/%")
	}
	if search := strings.TrimSpace(strings.ToLower(opts.Search)); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		clauses = append(clauses, "(LOWER(url) LIKE ? OR LOWER(namespace) LIKE ? OR LOWER(headers_json) LIKE ?)")
		args = append(args, like, like, like)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
