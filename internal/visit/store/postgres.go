package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"visitlog/internal/visit/models"
	"visitlog/pkg/platform/sentinel"
	txcontext "visitlog/pkg/platform/tx"
)

// Postgres persists visits in the visits table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer returns the transaction from context when present so visit writes
// can participate in a caller-managed transaction.
func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const visitColumns = "id, rut, visitor_name, reason, entry_time, exit_time"

func (s *Postgres) Create(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO visits (id, rut, visitor_name, reason, entry_time, exit_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		visit.ID, visit.RUT, visit.VisitorName, visit.Reason, visit.EntryTime, visit.ExitTime,
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	return scanVisit(row)
}

func (s *Postgres) List(ctx context.Context, limit, offset int) ([]*models.Visit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits ORDER BY entry_time DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return scanVisits(rows)
}

func (s *Postgres) ListByStatus(ctx context.Context, active bool) ([]*models.Visit, error) {
	condition := "exit_time IS NULL"
	if !active {
		condition = "exit_time IS NOT NULL"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE `+condition+` ORDER BY entry_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list visits by status: %w", err)
	}
	return scanVisits(rows)
}

func (s *Postgres) ListRecent(ctx context.Context, n int) ([]*models.Visit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits ORDER BY entry_time DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("list recent visits: %w", err)
	}
	return scanVisits(rows)
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return count, nil
}

func (s *Postgres) Update(ctx context.Context, visit *models.Visit) error {
	query := `
		UPDATE visits
		SET rut = $2, visitor_name = $3, reason = $4, exit_time = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		visit.ID, visit.RUT, visit.VisitorName, visit.Reason, visit.ExitTime)
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update visit rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute serializes check-then-mutate per record with SELECT ... FOR UPDATE.
// Two concurrent departure markings on the same visit queue on the row lock;
// the second observes the first's exit_time and fails its check.
func (s *Postgres) Execute(ctx context.Context, id uuid.UUID, check func(*models.Visit) error, mutate func(*models.Visit)) (*models.Visit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin visit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1 FOR UPDATE`, id)
	visit, err := scanVisit(row)
	if err != nil {
		return nil, err
	}

	if err := check(visit); err != nil {
		return nil, err
	}
	mutate(visit)

	_, err = tx.ExecContext(ctx,
		`UPDATE visits SET rut = $2, visitor_name = $3, reason = $4, exit_time = $5 WHERE id = $1`,
		visit.ID, visit.RUT, visit.VisitorName, visit.Reason, visit.ExitTime)
	if err != nil {
		return nil, fmt.Errorf("update visit in tx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit visit tx: %w", err)
	}
	return visit, nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete visit rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var v models.Visit
	var exit sql.NullTime
	err := row.Scan(&v.ID, &v.RUT, &v.VisitorName, &v.Reason, &v.EntryTime, &exit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan visit: %w", err)
	}
	if exit.Valid {
		t := exit.Time
		v.ExitTime = &t
	}
	return &v, nil
}

func scanVisits(rows *sql.Rows) ([]*models.Visit, error) {
	defer rows.Close()
	out := make([]*models.Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return out, nil
}
