package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-timetable/internal/persistence"
)

// OverrideRepository implements persistence.OverrideRepository using SQLite
type OverrideRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewOverrideRepository creates a new SQLite calendar override repository
func NewOverrideRepository(pool *ConnectionPool) *OverrideRepository {
	return &OverrideRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    pool.Now,
	}
}

// UpsertOverride stores the override for its date, replacing any previous one
func (r *OverrideRepository) UpsertOverride(ctx context.Context, override persistence.CalendarOverride) (persistence.CalendarOverride, error) {
	override.UpdatedAt = r.now().UTC()
	_, err := r.helper.Exec(ctx,
		`INSERT INTO calendar_overrides (date, kind, note, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET kind = excluded.kind, note = excluded.note, updated_at = excluded.updated_at`,
		override.Date, string(override.Kind), nullString(override.Note), override.UpdatedAt.Format(timestampLayout),
	)
	if err != nil {
		return persistence.CalendarOverride{}, r.mapper.MapError(err)
	}
	return override, nil
}

// DeleteOverride removes the override for date
func (r *OverrideRepository) DeleteOverride(ctx context.Context, date string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM calendar_overrides WHERE date = ?`, date)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListOverrides returns overrides dated within [from, to]; empty bounds are open
func (r *OverrideRepository) ListOverrides(ctx context.Context, from, to string) ([]persistence.CalendarOverride, error) {
	var (
		clauses []string
		args    []any
	)
	if from != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, to)
	}
	query := `SELECT date, kind, note, updated_at FROM calendar_overrides`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	overrides := make([]persistence.CalendarOverride, 0)
	for rows.Next() {
		var (
			override  persistence.CalendarOverride
			kind      string
			note      sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&override.Date, &kind, &note, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		override.Kind = persistence.OverrideKind(kind)
		override.Note = stringPtr(note)
		if override.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return overrides, nil
}
