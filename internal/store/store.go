// Package store keeps review selections and their chats in SQLite for the
// development backend.
package store

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"chat-review/internal/review"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

var ErrSelectionNotFound = errors.New("selection not found")

// driverName is sqlite3 plus a fold(text) function. SQLite's own LOWER and LIKE
// only fold ASCII, so search lowers both sides with Go's Unicode rules.
const driverName = "sqlite3_review"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS selections (
			id TEXT PRIMARY KEY,
			global_terms TEXT NOT NULL DEFAULT '',
			prompt_terms TEXT NOT NULL DEFAULT '',
			response_terms TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chats (
			selection_id TEXT NOT NULL REFERENCES selections(id) ON DELETE CASCADE,
			widget_chat_id TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			response_text TEXT NOT NULL DEFAULT '',
			created_at INTEGER,
			session_id TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (selection_id, widget_chat_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chats_selection_created ON chats(selection_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// CreateSelection stores rows under a new selection and returns its id.
func (s *Store) CreateSelection(ctx context.Context, terms review.SearchTerms, rows []review.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin selection tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO selections(id, global_terms, prompt_terms, response_terms, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, id, terms.Global, terms.Prompt, terms.Response, time.Now().Unix()); err != nil {
		return "", fmt.Errorf("insert selection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chats(selection_id, widget_chat_id, prompt, response_text, created_at, session_id)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(selection_id, widget_chat_id) DO UPDATE SET
			prompt=excluded.prompt,
			response_text=excluded.response_text,
			created_at=excluded.created_at,
			session_id=excluded.session_id
	`)
	if err != nil {
		return "", fmt.Errorf("prepare chat insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if strings.TrimSpace(r.ChatID) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, r.ChatID, r.Prompt, r.Response, nullableMillis(r.CreatedAt.Time), r.SessionID); err != nil {
			return "", fmt.Errorf("insert chat %s: %w", r.ChatID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit selection: %w", err)
	}
	return id, nil
}

// ImportJSONL reads one chat row per line and stores them as a new selection.
// Blank and malformed lines are skipped.
func (s *Store) ImportJSONL(ctx context.Context, r io.Reader, terms review.SearchTerms) (string, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var rows []review.Row
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row review.Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		if strings.TrimSpace(row.ChatID) == "" {
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("scan chat rows: %w", err)
	}

	id, err := s.CreateSelection(ctx, terms, rows)
	if err != nil {
		return "", 0, err
	}
	return id, len(rows), nil
}

// SearchTerms returns the filters recorded for a selection.
func (s *Store) SearchTerms(ctx context.Context, selectionID string) (review.SearchTerms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerms(ctx, selectionID)
}

func (s *Store) searchTerms(ctx context.Context, selectionID string) (review.SearchTerms, error) {
	var terms review.SearchTerms
	err := s.db.QueryRowContext(ctx, `
		SELECT global_terms, prompt_terms, response_terms FROM selections WHERE id = ?
	`, selectionID).Scan(&terms.Global, &terms.Prompt, &terms.Response)
	if errors.Is(err, sql.ErrNoRows) {
		return review.SearchTerms{}, ErrSelectionNotFound
	}
	if err != nil {
		return review.SearchTerms{}, fmt.Errorf("read selection %s: %w", selectionID, err)
	}
	return terms, nil
}

// Query returns one page of a selection. Out-of-range or unknown parameters are
// normalised the way the review-data endpoint documents.
func (s *Store) Query(ctx context.Context, q review.Query) (review.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q = Normalize(q)
	terms, err := s.searchTerms(ctx, q.SelectionID)
	if err != nil {
		return review.Page{}, err
	}

	where := ` WHERE selection_id = ?`
	args := []any{q.SelectionID}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where += ` AND (fold(prompt) LIKE ? ESCAPE '\' OR fold(response_text) LIKE ? ESCAPE '\' OR fold(session_id) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`+where, args...).Scan(&total); err != nil {
		return review.Page{}, fmt.Errorf("count chats: %w", err)
	}

	page := review.Page{
		Rows:        []review.Row{},
		Page:        q.Page,
		TotalRows:   total,
		TotalPages:  totalPages(total, q.Limit),
		SearchTerms: terms,
	}
	if total == 0 {
		return page, nil
	}

	// Sort column and direction come from a whitelist, never from raw input.
	stmt := `SELECT widget_chat_id, prompt, response_text, created_at, session_id FROM chats` + where +
		` ORDER BY ` + q.SortColumn + ` ` + string(q.SortDir) + `, widget_chat_id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, stmt, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return review.Page{}, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r review.Row
		var created sql.NullInt64
		if err := rows.Scan(&r.ChatID, &r.Prompt, &r.Response, &created, &r.SessionID); err != nil {
			return review.Page{}, fmt.Errorf("scan chat row: %w", err)
		}
		if created.Valid {
			r.CreatedAt = review.Timestamp{Time: time.UnixMilli(created.Int64).UTC()}
		}
		page.Rows = append(page.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return review.Page{}, fmt.Errorf("iterate chat rows: %w", err)
	}
	return page, nil
}

// Normalize applies the endpoint defaults: limit 10, page at least 1, whitelisted
// sort column (created_at otherwise) and ASC/DESC direction.
func Normalize(q review.Query) review.Query {
	if q.Limit <= 0 {
		q.Limit = review.DefaultLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.SortColumn = strings.ToLower(strings.TrimSpace(q.SortColumn))
	if !review.IsSortColumn(q.SortColumn) {
		q.SortColumn = review.DefaultSortColumn
	}
	q.SortDir = review.ParseSortDir(string(q.SortDir))
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func totalPages(total, limit int) int {
	if total == 0 || limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
