package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SenderID   uint       `gorm:"not null;index" json:"senderId"`
	ReceiverID uint       `gorm:"not null;index" json:"receiverId"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	ReadAt     *time.Time `json:"readAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Sender   User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE;" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE;" json:"-"`
}
