// Package notification stores per-user notifications and pushes them to live
// sockets.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventType is the socket event carrying a new notification.
const EventType = "notification"

var (
	ErrNotFound = errors.New("notification not found")
	ErrInvalid  = errors.New("invalid notification")
)

// Pusher delivers events to a user's live connections.
type Pusher interface {
	SendToUser(userID uint, event hub.Event)
	IsOnline(userID uint) bool
}

type Service struct {
	db     *gorm.DB
	pusher Pusher
	log    *logrus.Logger
}

func NewService(db *gorm.DB, pusher Pusher, log *logrus.Logger) *Service {
	return &Service{db: db, pusher: pusher, log: log}
}

// Validate checks that n has an owner, a message, and the one sub-record its type
// calls for.
func Validate(n *models.Notification) error {
	if n.UserID == 0 {
		return fmt.Errorf("%w: missing user", ErrInvalid)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: empty message", ErrInvalid)
	}

	subRecords := 0
	for _, set := range []bool{n.Request != nil, n.Reminder != nil, n.Event != nil} {
		if set {
			subRecords++
		}
	}

	var ok bool
	switch n.Type {
	case models.NotificationCommon:
		ok = subRecords == 0
	case models.NotificationRequest:
		ok = subRecords == 1 && n.Request != nil
	case models.NotificationReminder:
		ok = subRecords == 1 && n.Reminder != nil
	case models.NotificationEvent, models.NotificationInvite:
		ok = subRecords == 1 && n.Event != nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, n.Type)
	}
	if !ok {
		return fmt.Errorf("%w: %s notification has the wrong sub-record", ErrInvalid, n.Type)
	}
	return nil
}

// Create inserts n and its sub-record with tx, or with the service database when
// tx is nil. It does not push.
func (s *Service) Create(tx *gorm.DB, n *models.Notification) error {
	if err := Validate(n); err != nil {
		return err
	}
	if tx == nil {
		tx = s.db
	}
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Push sends n to its owner's live connections. There is no retry queue: an
// offline user sees the stored row on their next poll.
func (s *Service) Push(n models.Notification) {
	online := s.pusher.IsOnline(n.UserID)
	s.pusher.SendToUser(n.UserID, hub.Event{Type: EventType, Payload: n})
	metrics.IncNotification(string(n.Type), online)
}

// Notify creates and pushes n.
func (s *Service) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.Create(s.db.WithContext(ctx), n); err != nil {
		return err
	}
	s.Push(*n)
	return nil
}

// DeleteRequestNotifications removes the request notifications sent by sender
// for the pair since the outstanding request was created. Notifications from
// earlier friendship cycles are kept.
func DeleteRequestNotifications(tx *gorm.DB, user1, user2, sender uint, since time.Time) (int64, error) {
	var ids []uint
	if err := tx.Model(&models.RequestNotification{}).
		Joins("JOIN notifications ON notifications.id = request_notifications.notification_id").
		Where("request_notifications.user1_id = ? AND request_notifications.user2_id = ?", user1, user2).
		Where("request_notifications.sender_id = ? AND notifications.created_at >= ?", sender, since).
		Pluck("request_notifications.notification_id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find request notifications: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.Where("notification_id IN ?", ids).Delete(&models.RequestNotification{}).Error; err != nil {
		return 0, fmt.Errorf("delete request sub-records: %w", err)
	}
	res := tx.Where("id IN ?", ids).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete request notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListFilter narrows a notification listing.
type ListFilter struct {
	Type       models.NotificationType
	UnreadOnly bool
	Page       int
	Limit      int
}

// List returns a page of the user's notifications, newest first, and the total
// matching count.
func (s *Service) List(ctx context.Context, userID uint, f ListFilter) ([]models.Notification, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	var items []models.Notification
	err := query.Preload("Request").Preload("Reminder").Preload("Event").
		Order("created_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

type Stats struct {
	Unread int64 `json:"unread"`
	Total  int64 `json:"total"`
}

func (s *Service) Stats(ctx context.Context, userID uint) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx).Model(&models.Notification{})
	if err := db.Where("user_id = ?", userID).Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("count notifications: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&st.Unread).Error; err != nil {
		return st, fmt.Errorf("count unread notifications: %w", err)
	}
	return st, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one of the user's notifications with its sub-record.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		for _, sub := range []any{&models.RequestNotification{}, &models.ReminderNotification{}, &models.EventNotification{}} {
			if err := tx.Where("notification_id = ?", id).Delete(sub).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&n).Error
	})
}
