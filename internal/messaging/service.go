// Package messaging stores direct messages and pushes them to both parties.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventType is the socket event carrying a new message.
const EventType = "message"

// MaxContentLength bounds a message body in bytes.
const MaxContentLength = 4000

var (
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrContentTooLong   = errors.New("message content is too long")
	ErrSelfMessage      = errors.New("cannot message yourself")
	ErrReceiverNotFound = errors.New("receiver not found")
)

type Service struct {
	db        *gorm.DB
	pusher    notification.Pusher
	publisher events.Publisher
	log       *logrus.Logger
}

func NewService(db *gorm.DB, pusher notification.Pusher, publisher events.Publisher, log *logrus.Logger) *Service {
	return &Service{db: db, pusher: pusher, publisher: publisher, log: log}
}

// Send stores a message from sender to receiver and pushes it to the live
// connections of both users.
func (s *Service) Send(ctx context.Context, sender, receiver uint, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case sender == receiver:
		return models.Message{}, ErrSelfMessage
	case content == "":
		return models.Message{}, ErrEmptyContent
	case len(content) > MaxContentLength:
		return models.Message{}, ErrContentTooLong
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", receiver).Count(&count).Error; err != nil {
		return models.Message{}, fmt.Errorf("find receiver: %w", err)
	}
	if count == 0 {
		return models.Message{}, ErrReceiverNotFound
	}

	msg := models.Message{SenderID: sender, ReceiverID: receiver, Content: content}
	if err := db.Create(&msg).Error; err != nil {
		return models.Message{}, fmt.Errorf("create message: %w", err)
	}

	event := hub.Event{Type: EventType, Payload: msg}
	s.pusher.SendToUser(receiver, event)
	s.pusher.SendToUser(sender, event)
	metrics.IncMessageSent()
	events.Emit(ctx, s.publisher, s.log, events.MessageSent, sender, map[string]uint{
		"message_id":  msg.ID,
		"receiver_id": receiver,
	})
	return msg, nil
}

// ListForUser returns every message the user sent or received, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Conversation returns a page of the messages between userID and other, oldest
// first, with the total count. Messages received by userID are marked read.
func (s *Service) Conversation(ctx context.Context, userID, other uint, page, limit int) ([]models.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, other, other, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count conversation: %w", err)
	}

	messages := []models.Message{}
	if err := query.Order("created_at ASC").Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("load conversation: %w", err)
	}

	if _, err := s.MarkRead(ctx, userID, other); err != nil {
		s.log.WithError(err).WithField("user", userID).Warn("failed to mark conversation read")
	}
	return messages, total, nil
}

// MarkRead stamps every unread message from other to userID.
func (s *Service) MarkRead(ctx context.Context, userID, other uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read_at IS NULL", other, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("mark messages read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
