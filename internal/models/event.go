package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrEventNeedsDescription = errors.New("calendar item description cannot be empty for a published event")
	ErrEventNeedsLocation    = errors.New("calendar item location cannot be empty for a published event")
	ErrEventBusinessOwner    = errors.New("business owner must match calendar item owner")
)

// Event is a calendar item promoted to a public or business-visible occasion.
type Event struct {
	gorm.Model
	ItemID     uint    `gorm:"not null;uniqueIndex" json:"itemId"`
	BusinessID *uint   `gorm:"index" json:"businessId"`
	ChatLink   *string `gorm:"size:512" json:"chatLink"`
	Published  bool    `gorm:"not null;default:false" json:"published"`

	Item      CalendarItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE;" json:"item"`
	Business  *Business    `gorm:"foreignKey:BusinessID;constraint:OnDelete:SET NULL;" json:"business,omitempty"`
	Attendees []Attendee   `gorm:"foreignKey:EventID" json:"-"`
}

// Validate checks the publishing and ownership rules against the loaded item and
// business. business may be nil when BusinessID is unset.
func (e *Event) Validate(item CalendarItem, business *Business) error {
	if e.Published && strings.TrimSpace(item.Description) == "" {
		return ErrEventNeedsDescription
	}
	if e.Published && strings.TrimSpace(item.Location) == "" {
		return ErrEventNeedsLocation
	}
	if e.BusinessID != nil && (business == nil || business.OwnerID != item.UserID) {
		return ErrEventBusinessOwner
	}
	return nil
}

// Attendee marks a user as attending an event.
type Attendee struct {
	EventID   uint `gorm:"primaryKey;autoIncrement:false" json:"eventId"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Confirmed bool `gorm:"not null;default:false" json:"confirmed"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"user"`
}
