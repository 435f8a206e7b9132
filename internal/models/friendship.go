package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus defines the state of a friendship edge.
type FriendshipStatus string

const (
	// StatusPending1 means user1 has not yet responded to a request from user2.
	StatusPending1 FriendshipStatus = "pending1"

	// StatusPending2 means user2 has not yet responded to a request from user1.
	StatusPending2 FriendshipStatus = "pending2"

	// StatusAccepted means both users are friends.
	StatusAccepted FriendshipStatus = "accepted"
)

// ErrFriendshipOrder is returned when an edge is saved with User1ID >= User2ID.
var ErrFriendshipOrder = errors.New("friendship requires user1 < user2")

// Friendship is the undirected edge between two users. The composite primary key
// over the canonical order makes the edge unique per unordered pair.
type Friendship struct {
	User1ID   uint             `gorm:"primaryKey;autoIncrement:false" json:"user1"`
	User2ID   uint             `gorm:"primaryKey;autoIncrement:false" json:"user2"`
	Status    FriendshipStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	User1 User `gorm:"foreignKey:User1ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	User2 User `gorm:"foreignKey:User2ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (f *Friendship) BeforeSave(_ *gorm.DB) error {
	if f.User1ID >= f.User2ID {
		return ErrFriendshipOrder
	}
	return nil
}

// Other returns the counterparty of userID in the edge.
func (f Friendship) Other(userID uint) uint {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}
