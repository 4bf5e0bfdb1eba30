package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-timetable/internal/persistence"
)

const timestampLayout = time.RFC3339Nano

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    pool.Now,
	}
}

const roomColumns = `id, name, capacity, created_at, updated_at`

// ListRooms returns all rooms ordered by id ascending
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id int) (persistence.Room, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// GetRoomByName retrieves a room by its exact display name
func (r *RoomRepository) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE name = ?`, name)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// UpdateRoomCapacity sets the seating capacity of a room. Sessions keep the
// capacity snapshot they were written with.
func (r *RoomRepository) UpdateRoomCapacity(ctx context.Context, id int, capacity int) (persistence.Room, error) {
	var updated persistence.Room
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx,
			`UPDATE rooms SET capacity = ?, updated_at = ? WHERE id = ?`,
			capacity, r.now().UTC().Format(timestampLayout), id,
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

		row := r.helper.QueryRowTx(ctx, tx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
		updated, err = scanRoom(row)
		return r.mapper.MapError(err)
	})
	if err != nil {
		return persistence.Room{}, err
	}
	return updated, nil
}

// SeedRooms inserts rooms whose id is not present yet and returns how many were added.
func (r *RoomRepository) SeedRooms(ctx context.Context, rooms []persistence.Room) (int, error) {
	inserted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		now := r.now().UTC().Format(timestampLayout)
		for _, room := range rooms {
			result, err := r.helper.ExecTx(ctx, tx,
				`INSERT OR IGNORE INTO rooms (id, name, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				room.ID, room.Name, room.Capacity, now, now,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var createdAt, updatedAt string
	if err := s.Scan(&room.ID, &room.Name, &room.Capacity, &createdAt, &updatedAt); err != nil {
		return persistence.Room{}, err
	}
	var err error
	if room.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return room, nil
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(timestampLayout, value)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
