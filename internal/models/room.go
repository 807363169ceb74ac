package models

import "time"

// RoomType classifies a room. A direct room is a private 1:1 channel and at
// most one should exist per participant pair; the store schema carries the
// uniqueness constraint (partial unique index on the member pair), not the
// application.
type RoomType string

const (
	RoomDirect       RoomType = "direct"
	RoomGroup        RoomType = "group"
	RoomAnnouncement RoomType = "announcement"
)

// Room represents a chat room.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      RoomType  `db:"type" json:"type"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RoomMember associates a profile with a room. Membership implies read and
// post visibility into the room's messages.
type RoomMember struct {
	RoomID   string    `db:"room_id" json:"room_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// RoomStudent is the membership-join projection used by the deadline scan:
// enrolled members with role student, in deterministic enumeration order.
type RoomStudent struct {
	UserID   string `db:"user_id" json:"user_id"`
	FullName string `db:"full_name" json:"full_name"`
}
