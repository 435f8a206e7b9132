package models

import "time"

type NotificationType string

const (
	NotificationCommon   NotificationType = "common"
	NotificationRequest  NotificationType = "request"
	NotificationReminder NotificationType = "reminder"
	NotificationEvent    NotificationType = "event"
	NotificationInvite   NotificationType = "invite"
)

type EventNotificationKind string

const (
	EventKindReminder  EventNotificationKind = "reminder"
	EventKindStarting  EventNotificationKind = "starting"
	EventKindCancelled EventNotificationKind = "cancelled"
	EventKindInvite    EventNotificationKind = "invite"
)

// Notification belongs to one user and is extended by at most one sub-record
// sharing its ID.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"userId"`
	Message   string           `gorm:"size:500;not null" json:"message"`
	Type      NotificationType `gorm:"type:varchar(20);not null;index" json:"type"`
	Read      bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	User     User                  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Request  *RequestNotification  `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE;" json:"request,omitempty"`
	Reminder *ReminderNotification `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE;" json:"reminder,omitempty"`
	Event    *EventNotification    `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE;" json:"event,omitempty"`
}

// RequestNotification ties a notification to a friendship pair.
type RequestNotification struct {
	NotificationID uint `gorm:"primaryKey;autoIncrement:false" json:"notificationId"`
	User1ID        uint `gorm:"not null;index:idx_request_pair" json:"user1"`
	User2ID        uint `gorm:"not null;index:idx_request_pair" json:"user2"`
	SenderID       uint `gorm:"not null" json:"senderId"`
}

type ReminderNotification struct {
	NotificationID uint `gorm:"primaryKey;autoIncrement:false" json:"notificationId"`
	ReminderID     uint `gorm:"not null;index" json:"reminderId"`
}

type EventNotification struct {
	NotificationID uint                  `gorm:"primaryKey;autoIncrement:false" json:"notificationId"`
	EventID        uint                  `gorm:"not null;index" json:"eventId"`
	Kind           EventNotificationKind `gorm:"type:varchar(20);not null" json:"kind"`
}
