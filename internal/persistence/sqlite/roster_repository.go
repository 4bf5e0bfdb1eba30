package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-timetable/internal/persistence"
)

// RosterRepository implements persistence.RosterRepository using SQLite
type RosterRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRosterRepository creates a new SQLite class roster repository
func NewRosterRepository(pool *ConnectionPool) *RosterRepository {
	return &RosterRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    pool.Now,
	}
}

const rosterColumns = `id, name, major, headcount, created_at, updated_at`

// CreateRoster inserts a roster and returns it with its generated id
func (r *RosterRepository) CreateRoster(ctx context.Context, roster persistence.ClassRoster) (persistence.ClassRoster, error) {
	now := r.now().UTC()
	result, err := r.helper.Exec(ctx,
		`INSERT INTO class_rosters (name, major, headcount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		roster.Name, nullString(roster.Major), roster.Headcount,
		now.Format(timestampLayout), now.Format(timestampLayout),
	)
	if err != nil {
		return persistence.ClassRoster{}, r.mapper.MapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return persistence.ClassRoster{}, fmt.Errorf("failed to read roster id: %w", err)
	}

	roster.ID = id
	roster.CreatedAt = now
	roster.UpdatedAt = now
	return roster, nil
}

// UpdateRoster replaces the name, major and headcount of an existing roster
func (r *RosterRepository) UpdateRoster(ctx context.Context, roster persistence.ClassRoster) (persistence.ClassRoster, error) {
	var updated persistence.ClassRoster
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx,
			`UPDATE class_rosters SET name = ?, major = ?, headcount = ?, updated_at = ? WHERE id = ?`,
			roster.Name, nullString(roster.Major), roster.Headcount,
			r.now().UTC().Format(timestampLayout), roster.ID,
		)
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

		row := r.helper.QueryRowTx(ctx, tx, `SELECT `+rosterColumns+` FROM class_rosters WHERE id = ?`, roster.ID)
		updated, err = scanRoster(row)
		return r.mapper.MapError(err)
	})
	if err != nil {
		return persistence.ClassRoster{}, err
	}
	return updated, nil
}

// DeleteRoster removes a roster. Sessions that referenced it by name are untouched.
func (r *RosterRepository) DeleteRoster(ctx context.Context, id int64) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM class_rosters WHERE id = ?`, id)
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

// GetRoster retrieves a roster by id
func (r *RosterRepository) GetRoster(ctx context.Context, id int64) (persistence.ClassRoster, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+rosterColumns+` FROM class_rosters WHERE id = ?`, id)
	roster, err := scanRoster(row)
	if err != nil {
		return persistence.ClassRoster{}, r.mapper.MapError(err)
	}
	return roster, nil
}

// GetRosterByName retrieves a roster by its unique name
func (r *RosterRepository) GetRosterByName(ctx context.Context, name string) (persistence.ClassRoster, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+rosterColumns+` FROM class_rosters WHERE name = ?`, name)
	roster, err := scanRoster(row)
	if err != nil {
		return persistence.ClassRoster{}, r.mapper.MapError(err)
	}
	return roster, nil
}

// ListRosters returns all rosters ordered by name
func (r *RosterRepository) ListRosters(ctx context.Context) ([]persistence.ClassRoster, error) {
	return r.queryRosters(ctx, `SELECT `+rosterColumns+` FROM class_rosters ORDER BY name ASC, id ASC`)
}

// ListRostersByName returns the rosters whose name is one of names
func (r *RosterRepository) ListRostersByName(ctx context.Context, names []string) ([]persistence.ClassRoster, error) {
	if len(names) == 0 {
		return []persistence.ClassRoster{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}
	return r.queryRosters(ctx,
		`SELECT `+rosterColumns+` FROM class_rosters WHERE name IN (`+placeholders+`) ORDER BY name ASC`,
		args...,
	)
}

func (r *RosterRepository) queryRosters(ctx context.Context, query string, args ...any) ([]persistence.ClassRoster, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rosters := make([]persistence.ClassRoster, 0)
	for rows.Next() {
		roster, err := scanRoster(rows)
		if err != nil {
			return nil, err
		}
		rosters = append(rosters, roster)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rosters, nil
}

func scanRoster(s rowScanner) (persistence.ClassRoster, error) {
	var roster persistence.ClassRoster
	var major sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&roster.ID, &roster.Name, &major, &roster.Headcount, &createdAt, &updatedAt); err != nil {
		return persistence.ClassRoster{}, err
	}
	roster.Major = stringPtr(major)
	var err error
	if roster.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.ClassRoster{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if roster.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.ClassRoster{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return roster, nil
}
