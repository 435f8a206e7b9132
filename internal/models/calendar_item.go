package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type ItemType string

const (
	ItemTypePersonal ItemType = "personal"
	ItemTypeEvent    ItemType = "event"
)

type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

var (
	ErrItemTimeRange = errors.New("calendar item end must not be before start")
	ErrItemType      = errors.New("calendar item type must be personal or event")
	ErrItemPrivacy   = errors.New("calendar item privacy must be public or private")
)

// CalendarItem is an entry on a user's (or a business's) calendar.
type CalendarItem struct {
	gorm.Model
	Title       string     `gorm:"size:255" json:"title"`
	Description string     `gorm:"size:2000" json:"description"`
	Location    string     `gorm:"size:255" json:"location"`
	Start       *time.Time `gorm:"index" json:"start"`
	End         *time.Time `json:"end"`
	ItemType    ItemType   `gorm:"type:varchar(20);not null;default:'personal'" json:"itemType"`
	Privacy     Privacy    `gorm:"type:varchar(20);not null;default:'private'" json:"privacy"`
	BusinessID  *uint      `gorm:"index" json:"businessId"`
	UserID      uint       `gorm:"not null;index" json:"userId"`

	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Business *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:SET NULL;" json:"business,omitempty"`
}

func (c *CalendarItem) BeforeSave(_ *gorm.DB) error {
	if c.ItemType == "" {
		c.ItemType = ItemTypePersonal
	}
	if c.Privacy == "" {
		c.Privacy = PrivacyPrivate
	}
	if c.ItemType != ItemTypePersonal && c.ItemType != ItemTypeEvent {
		return ErrItemType
	}
	if c.Privacy != PrivacyPublic && c.Privacy != PrivacyPrivate {
		return ErrItemPrivacy
	}
	if c.Start != nil && c.End != nil && c.End.Before(*c.Start) {
		return ErrItemTimeRange
	}
	return nil
}
