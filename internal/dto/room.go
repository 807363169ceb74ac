package dto

import "time"

// CreateRoomRequest creates a group or announcement room. Direct rooms are
// only ever created by the notification workflow.
type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Type string `json:"type" validate:"required,oneof=group announcement"`
}

// AddMemberRequest adds a profile to a room, looked up by email.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RoomItem is the room list projection, ordered by newest membership first.
type RoomItem struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}
