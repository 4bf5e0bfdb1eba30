package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-timetable/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
//
// Every write runs in a single transaction whose first statement is a write,
// so SQLite takes the write lock up front and competing writers queue on the
// busy timeout instead of interleaving between a check and an insert.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    pool.Now,
	}
}

const sessionColumns = `id, room_id, date, period, course_name, teacher_name, content, planned,
	capacity, allow_overflow, duration, class_names, created_at, updated_at`

const insertSessionSQL = `INSERT INTO sessions (` + sessionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceRange deletes every session of roomID dated within [from, to] and
// inserts sessions in the same transaction.
func (r *SessionRepository) ReplaceRange(ctx context.Context, roomID int, from, to string, sessions []persistence.Session) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx,
				`DELETE FROM sessions WHERE room_id = ? AND date >= ? AND date <= ?`,
				roomID, from, to,
			); err != nil {
				return r.mapper.MapError(err)
			}

			now := r.now().UTC()
			for _, session := range sessions {
				session.CreatedAt = now
				session.UpdatedAt = now
				if err := r.insertTx(ctx, tx, session); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// UpsertSession writes session into its (room, date, period) slot, updating the
// occupant in place or inserting a new row with session.ID when the slot is empty.
func (r *SessionRepository) UpsertSession(ctx context.Context, session persistence.Session) (persistence.Session, bool, error) {
	if session.ID == "" {
		return persistence.Session{}, false, fmt.Errorf("%w: session id is required", persistence.ErrConstraintViolation)
	}

	var (
		stored   persistence.Session
		inserted bool
	)
	write := func() error {
		return r.retry.WithRetry(ctx, func() error {
			return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
				var err error
				stored, inserted, err = r.upsertTx(ctx, tx, session)
				return err
			})
		})
	}

	err := write()
	if errors.Is(err, persistence.ErrDuplicate) {
		// The slot was claimed between our update and insert; the second pass updates it.
		err = write()
	}
	if err != nil {
		return persistence.Session{}, false, err
	}
	return stored, inserted, nil
}

func (r *SessionRepository) upsertTx(ctx context.Context, tx *sql.Tx, session persistence.Session) (persistence.Session, bool, error) {
	now := r.now().UTC()
	result, err := r.helper.ExecTx(ctx, tx,
		`UPDATE sessions
		SET course_name = ?, teacher_name = ?, content = ?, planned = ?, capacity = ?,
			allow_overflow = ?, duration = ?, class_names = ?, updated_at = ?
		WHERE room_id = ? AND date = ? AND period = ?`,
		session.CourseName, session.TeacherName, nullString(session.Content), session.Planned,
		session.Capacity, session.AllowOverflow, session.Duration, nullString(session.ClassNames),
		now.Format(timestampLayout),
		session.RoomID, session.Date, session.Period,
	)
	if err != nil {
		return persistence.Session{}, false, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	inserted := false
	if affected == 0 {
		session.CreatedAt = now
		session.UpdatedAt = now
		if err := r.insertTx(ctx, tx, session); err != nil {
			return persistence.Session{}, false, err
		}
		inserted = true
	}

	row := r.helper.QueryRowTx(ctx, tx,
		`SELECT `+sessionColumns+` FROM sessions WHERE room_id = ? AND date = ? AND period = ?`,
		session.RoomID, session.Date, session.Period,
	)
	stored, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, false, r.mapper.MapError(err)
	}
	return stored, inserted, nil
}

func (r *SessionRepository) insertTx(ctx context.Context, tx *sql.Tx, session persistence.Session) error {
	_, err := r.helper.ExecTx(ctx, tx, insertSessionSQL,
		session.ID, session.RoomID, session.Date, session.Period,
		session.CourseName, session.TeacherName, nullString(session.Content), session.Planned,
		session.Capacity, session.AllowOverflow, session.Duration, nullString(session.ClassNames),
		session.CreatedAt.Format(timestampLayout), session.UpdatedAt.Format(timestampLayout),
	)
	return r.mapper.MapError(err)
}

// GetSessionAt returns the session occupying a slot
func (r *SessionRepository) GetSessionAt(ctx context.Context, roomID int, date string, period int) (persistence.Session, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE room_id = ? AND date = ? AND period = ?`,
		roomID, date, period,
	)
	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// ListSessions returns sessions matching filter ordered by date, period and room
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RoomID != nil {
		clauses = append(clauses, "room_id = ?")
		args = append(args, *filter.RoomID)
	}
	if filter.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC, period ASC, room_id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	sessions := make([]persistence.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// DeleteSessions removes every session of roomID, or every session when roomID is nil
func (r *SessionRepository) DeleteSessions(ctx context.Context, roomID *int) (int64, error) {
	var deleted int64
	err := r.retry.WithRetry(ctx, func() error {
		var (
			result sql.Result
			err    error
		)
		if roomID != nil {
			result, err = r.helper.Exec(ctx, `DELETE FROM sessions WHERE room_id = ?`, *roomID)
		} else {
			result, err = r.helper.Exec(ctx, `DELETE FROM sessions`)
		}
		if err != nil {
			return r.mapper.MapError(err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func scanSession(s rowScanner) (persistence.Session, error) {
	var (
		session              persistence.Session
		content, classNames  sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(
		&session.ID,
		&session.RoomID,
		&session.Date,
		&session.Period,
		&session.CourseName,
		&session.TeacherName,
		&content,
		&session.Planned,
		&session.Capacity,
		&session.AllowOverflow,
		&session.Duration,
		&classNames,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Session{}, err
	}
	session.Content = stringPtr(content)
	session.ClassNames = stringPtr(classNames)

	var err error
	if session.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}
