package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
)

// RoomRepository provides database access for rooms and memberships.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new instance of RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a new room and returns the stored record.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO rooms (id, name, type, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, room.ID, room.Name, room.Type, room.CreatedBy, room.CreatedAt); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// FindByID returns a room by identifier.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, type, created_by, created_at FROM rooms WHERE id = $1 LIMIT 1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	return &room, nil
}

// AddMember inserts a membership row.
func (r *RoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	const query = `INSERT INTO room_members (room_id, user_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, roomID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add room member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the room.
func (r *RoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, roomID, userID); err != nil {
		return false, fmt.Errorf("check room membership: %w", err)
	}
	return exists, nil
}

// ListByMember returns the rooms a user belongs to, newest membership first.
func (r *RoomRepository) ListByMember(ctx context.Context, userID string) ([]dto.RoomItem, error) {
	const query = `
SELECT r.id, r.name, r.type, r.created_by, rm.joined_at
FROM room_members rm
JOIN rooms r ON r.id = rm.room_id
WHERE rm.user_id = $1
ORDER BY rm.joined_at DESC`
	var items []dto.RoomItem
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list rooms by member: %w", err)
	}
	return items, nil
}

// FindDirectRoomWith returns the id of a direct room shared by both users,
// or sql.ErrNoRows when none exists. There is no atomic primitive guarding
// the find-or-create sequence built on top of this; the schema's uniqueness
// constraint is the backstop for concurrent first-use.
func (r *RoomRepository) FindDirectRoomWith(ctx context.Context, firstUserID, secondUserID string) (string, error) {
	const query = `
SELECT r.id
FROM rooms r
JOIN room_members a ON a.room_id = r.id AND a.user_id = $1
JOIN room_members b ON b.room_id = r.id AND b.user_id = $2
WHERE r.type = 'direct'
LIMIT 1`
	var roomID string
	if err := r.db.GetContext(ctx, &roomID, query, firstUserID, secondUserID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find direct room: %w", err)
	}
	return roomID, nil
}

// ListStudents returns the room's members with role student, ordered by
// join time then id so scan enumeration stays deterministic.
func (r *RoomRepository) ListStudents(ctx context.Context, roomID string) ([]models.RoomStudent, error) {
	const query = `
SELECT p.id AS user_id, p.full_name
FROM room_members rm
JOIN profiles p ON p.id = rm.user_id
WHERE rm.room_id = $1 AND p.role = 'student'
ORDER BY rm.joined_at ASC, p.id ASC`
	var students []models.RoomStudent
	if err := r.db.SelectContext(ctx, &students, query, roomID); err != nil {
		return nil, fmt.Errorf("list room students: %w", err)
	}
	return students, nil
}
