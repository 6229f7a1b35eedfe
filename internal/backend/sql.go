package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"audit-analytics/internal/audit"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// OpenDB connects to Postgres through the pgx driver and checks the connection.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// SQLSource reads the audit tables directly from Postgres.
type SQLSource struct {
	db *sql.DB
}

// NewSQLSource wraps an open database. The caller owns db and closes it.
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

const (
	areasQuery = `SELECT id, hotel_id, name, type, sort_order FROM areas WHERE hotel_id = $1 ORDER BY id`

	templatesQuery = `SELECT id, hotel_id, name, area_id, is_active FROM audit_templates WHERE hotel_id = $1 ORDER BY id`

	sectionsQuery = `SELECT s.id, s.template_id, s.title, s.sort_order
FROM audit_sections s
JOIN audit_templates t ON t.id = s.template_id
WHERE t.hotel_id = $1
ORDER BY s.id`

	questionsQuery = `SELECT q.id, q.section_id, q.text, q.tag, q.classification, q.is_active
FROM audit_questions q
JOIN audit_sections s ON s.id = q.section_id
JOIN audit_templates t ON t.id = s.template_id
WHERE t.hotel_id = $1
ORDER BY q.id`

	membersQuery = `SELECT id, hotel_id, full_name, position, employee_number FROM team_members WHERE hotel_id = $1 ORDER BY id`

	runsQuery = `SELECT id, hotel_id, area_id, template_id, executed_by, executed_at, status, score
FROM audit_runs
WHERE hotel_id = $1
ORDER BY executed_at, id`

	answersQuery = `SELECT a.run_id, a.question_id, a.result, a.answer
FROM audit_answers a
JOIN audit_runs r ON r.id = a.run_id
WHERE r.hotel_id = $1
ORDER BY a.run_id, a.question_id`
)

// Fetch reads every table for the hotel. Queries run sequentially on one
// connection so the snapshot sees a consistent read.
func (s *SQLSource) Fetch(ctx context.Context, hotelID string) (*audit.Snapshot, error) {
	if hotelID == "" {
		return nil, fmt.Errorf("hotel id is required")
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	var rows Rows
	if rows.Areas, err = query(ctx, tx, "areas", areasQuery, hotelID, func(sc scanner) (r AreaRow, err error) {
		return r, sc.Scan(&r.ID, &r.HotelID, &r.Name, &r.Type, &r.SortOrder)
	}); err != nil {
		return nil, err
	}
	if rows.Templates, err = query(ctx, tx, "audit_templates", templatesQuery, hotelID, func(sc scanner) (r TemplateRow, err error) {
		return r, sc.Scan(&r.ID, &r.HotelID, &r.Name, &r.AreaID, &r.IsActive)
	}); err != nil {
		return nil, err
	}
	if rows.Sections, err = query(ctx, tx, "audit_sections", sectionsQuery, hotelID, func(sc scanner) (r SectionRow, err error) {
		return r, sc.Scan(&r.ID, &r.TemplateID, &r.Title, &r.SortOrder)
	}); err != nil {
		return nil, err
	}
	if rows.Questions, err = query(ctx, tx, "audit_questions", questionsQuery, hotelID, func(sc scanner) (r QuestionRow, err error) {
		return r, sc.Scan(&r.ID, &r.SectionID, &r.Text, &r.Tag, &r.Classification, &r.IsActive)
	}); err != nil {
		return nil, err
	}
	if rows.Members, err = query(ctx, tx, "team_members", membersQuery, hotelID, func(sc scanner) (r MemberRow, err error) {
		return r, sc.Scan(&r.ID, &r.HotelID, &r.FullName, &r.Position, &r.EmployeeNumber)
	}); err != nil {
		return nil, err
	}
	if rows.Runs, err = query(ctx, tx, "audit_runs", runsQuery, hotelID, func(sc scanner) (r RunRow, err error) {
		var executedAt sql.NullTime
		if err := sc.Scan(&r.ID, &r.HotelID, &r.AreaID, &r.TemplateID, &r.ExecutedBy, &executedAt, &r.Status, &r.Score); err != nil {
			return r, err
		}
		if executedAt.Valid {
			r.ExecutedAt = executedAt.Time.UTC().Format(time.RFC3339Nano)
		}
		return r, nil
	}); err != nil {
		return nil, err
	}
	if rows.Answers, err = query(ctx, tx, "audit_answers", answersQuery, hotelID, func(sc scanner) (r AnswerRow, err error) {
		return r, sc.Scan(&r.RunID, &r.QuestionID, &r.Result, &r.Answer)
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("hotel_id", hotelID).
		Int("runs", len(rows.Runs)).
		Int("answers", len(rows.Answers)).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched hotel from database")
	return MapSnapshot(hotelID, rows, time.Now()), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func query[T any](ctx context.Context, tx *sql.Tx, table, q, hotelID string, scan func(scanner) (T, error)) ([]T, error) {
	rs, err := tx.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rs.Close()

	var out []T
	for rs.Next() {
		row, err := scan(rs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return out, nil
}
