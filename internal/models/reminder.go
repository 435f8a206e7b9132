package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type TimeScale string

const (
	ScaleMinutes TimeScale = "minutes"
	ScaleHours   TimeScale = "hours"
	ScaleDays    TimeScale = "days"
	ScaleWeeks   TimeScale = "weeks"
)

var (
	ErrReminderTimeValue = errors.New("time value must be positive")
	ErrReminderTimeScale = errors.New("time scale must be minutes, hours, days or weeks")
)

// Reminder fires a notification TimeValue*TimeScale before its calendar item starts.
type Reminder struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TimeValue      int        `gorm:"not null" json:"timeValue"`
	TimeScale      TimeScale  `gorm:"type:varchar(10);not null" json:"timeScale"`
	CalendarItemID uint       `gorm:"not null;index" json:"calendarItemId"`
	OwnerID        uint       `gorm:"not null;index" json:"ownerId"`
	FiredAt        *time.Time `json:"firedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	CalendarItem CalendarItem `gorm:"foreignKey:CalendarItemID;constraint:OnDelete:CASCADE;" json:"-"`
	Owner        User         `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE;" json:"-"`
}

func (r *Reminder) BeforeSave(_ *gorm.DB) error {
	if r.TimeValue <= 0 {
		return ErrReminderTimeValue
	}
	if _, ok := scaleUnits[r.TimeScale]; !ok {
		return ErrReminderTimeScale
	}
	return nil
}

var scaleUnits = map[TimeScale]time.Duration{
	ScaleMinutes: time.Minute,
	ScaleHours:   time.Hour,
	ScaleDays:    24 * time.Hour,
	ScaleWeeks:   7 * 24 * time.Hour,
}

// Offset is how long before the item start the reminder fires.
func (r Reminder) Offset() time.Duration {
	return time.Duration(r.TimeValue) * scaleUnits[r.TimeScale]
}
