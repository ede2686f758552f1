package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/campusfix/campusfix/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent callers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const issueColumns = `id, title, description, category, urgency, urgency_score, location, status,
	assigned_to, assigned_at, assigned_by, is_deleted, deleted_at, deleted_by,
	is_anonymous, created_by, auto_reason, possible_duplicate_of, duplicate_group_id,
	master_issue_id, duplicates_count, created_at, updated_at`

func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = newULID()
	}
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	// Every issue created through normal submission starts its audit
	// trail with an "open" entry.
	if len(issue.StatusHistory) == 0 {
		issue.StatusHistory = []models.StatusEntry{{Status: models.IssueStatusOpen, At: now}}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO issues (`+issueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Title, issue.Description, string(issue.Category), string(issue.Urgency),
		issue.UrgencyScore, issue.Location, string(issue.Status),
		string(issue.AssignedTo), issue.AssignedAt, issue.AssignedBy,
		boolToInt(issue.IsDeleted), issue.DeletedAt, issue.DeletedBy,
		boolToInt(issue.IsAnonymous), issue.CreatedBy, issue.AutoReason,
		issue.PossibleDuplicateOf, issue.DuplicateGroupID,
		issue.MasterIssueID, issue.DuplicatesCount,
		issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	for _, e := range issue.StatusHistory {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO status_history (issue_id, status, at, note) VALUES (?, ?, ?, ?)",
			issue.ID, string(e.Status), e.At, e.Note,
		); err != nil {
			return fmt.Errorf("create issue history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("issue not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}

	history, err := s.loadHistory(ctx, []string{issue.ID})
	if err != nil {
		return nil, err
	}
	issue.StatusHistory = history[issue.ID]
	return issue, nil
}

func (s *SQLiteStore) ListIssues(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var conditions []string
	var args []any

	if !filter.IncludeDeleted {
		conditions = append(conditions, "is_deleted = 0")
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Urgency != "" {
		conditions = append(conditions, "urgency = ?")
		args = append(args, string(filter.Urgency))
	}
	if filter.Location != "" {
		conditions = append(conditions, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, "assigned_to = ?")
		args = append(args, string(filter.AssignedTo))
	}
	if !filter.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at > ?")
		args = append(args, filter.CreatedAfter.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	var ids []string
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
		ids = append(ids, issue.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		issue.StatusHistory = history[issue.ID]
	}
	return issues, nil
}

func (s *SQLiteStore) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	issue.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, updateIssueSQL, updateIssueArgs(issue)...)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue not found: %s", issue.ID)
	}
	return nil
}

func (s *SQLiteStore) TransitionIssue(ctx context.Context, issue *models.Issue, entry models.StatusEntry) error {
	issue.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, updateIssueSQL, updateIssueArgs(issue)...)
	if err != nil {
		return fmt.Errorf("transition issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue not found: %s", issue.ID)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO status_history (issue_id, status, at, note) VALUES (?, ?, ?, ?)",
		issue.ID, string(entry.Status), entry.At, entry.Note,
	); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const updateIssueSQL = `UPDATE issues SET title=?, description=?, category=?, urgency=?, urgency_score=?,
	location=?, status=?, assigned_to=?, assigned_at=?, assigned_by=?,
	is_deleted=?, deleted_at=?, deleted_by=?, is_anonymous=?, auto_reason=?,
	possible_duplicate_of=?, duplicate_group_id=?, master_issue_id=?, duplicates_count=?,
	updated_at=? WHERE id=?`

func updateIssueArgs(issue *models.Issue) []any {
	return []any{
		issue.Title, issue.Description, string(issue.Category), string(issue.Urgency), issue.UrgencyScore,
		issue.Location, string(issue.Status), string(issue.AssignedTo), issue.AssignedAt, issue.AssignedBy,
		boolToInt(issue.IsDeleted), issue.DeletedAt, issue.DeletedBy, boolToInt(issue.IsAnonymous), issue.AutoReason,
		issue.PossibleDuplicateOf, issue.DuplicateGroupID, issue.MasterIssueID, issue.DuplicatesCount,
		issue.UpdatedAt, issue.ID,
	}
}

// scanner abstracts *sql.Row and *sql.Rows for scanIssue.
type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(row scanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var category, urgency, status, assignedTo string
	var assignedAt, deletedAt sql.NullTime
	var isDeleted, isAnonymous int

	err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &category, &urgency,
		&issue.UrgencyScore, &issue.Location, &status,
		&assignedTo, &assignedAt, &issue.AssignedBy,
		&isDeleted, &deletedAt, &issue.DeletedBy,
		&isAnonymous, &issue.CreatedBy, &issue.AutoReason,
		&issue.PossibleDuplicateOf, &issue.DuplicateGroupID,
		&issue.MasterIssueID, &issue.DuplicatesCount,
		&issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}

	issue.Category = models.IssueCategory(category)
	issue.Urgency = models.IssueUrgency(urgency)
	issue.Status = models.IssueStatus(status)
	issue.AssignedTo = models.StaffRole(assignedTo)
	issue.IsDeleted = isDeleted != 0
	issue.IsAnonymous = isAnonymous != 0
	if assignedAt.Valid {
		issue.AssignedAt = &assignedAt.Time
	}
	if deletedAt.Valid {
		issue.DeletedAt = &deletedAt.Time
	}
	return issue, nil
}

// loadHistory fetches status history for the given issue ids, oldest first.
func (s *SQLiteStore) loadHistory(ctx context.Context, ids []string) (map[string][]models.StatusEntry, error) {
	result := make(map[string][]models.StatusEntry)
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_id, status, at, note FROM status_history
		WHERE issue_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var issueID, status, note string
		var at time.Time
		if err := rows.Scan(&issueID, &status, &at, &note); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		result[issueID] = append(result[issueID], models.StatusEntry{
			Status: models.IssueStatus(status),
			At:     at,
			Note:   note,
		})
	}
	return result, rows.Err()
}
