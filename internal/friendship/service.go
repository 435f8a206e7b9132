package friendship

import (
	"context"
	"errors"
	"fmt"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UpdateEvent is the socket event sent to both users after a transition.
const UpdateEvent = "friendship:update"

// ErrUserNotFound is returned when the counterparty does not exist.
var ErrUserNotFound = errors.New("user not found")

// Direction selects which side of pending requests to list.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Update describes an applied transition. It is the payload of the
// friendship:update event and of the broker events.
type Update struct {
	User1ID uint                    `json:"user1"`
	User2ID uint                    `json:"user2"`
	Status  models.FriendshipStatus `json:"status"`
	Action  Action                  `json:"action"`
	ActorID uint                    `json:"actorId"`
}

var routingKeys = map[Action]string{
	ActionCreate:  events.FriendshipCreated,
	ActionAccept:  events.FriendshipAccepted,
	ActionDecline: events.FriendshipDeclined,
	ActionCancel:  events.FriendshipCancelled,
	ActionRemove:  events.FriendshipRemoved,
}

type Service struct {
	db        *gorm.DB
	notifier  *notification.Service
	pusher    notification.Pusher
	publisher events.Publisher
	log       *logrus.Logger
}

func NewService(db *gorm.DB, notifier *notification.Service, pusher notification.Pusher, publisher events.Publisher, log *logrus.Logger) *Service {
	return &Service{db: db, notifier: notifier, pusher: pusher, publisher: publisher, log: log}
}

func (s *Service) Request(ctx context.Context, actor, other uint) (Update, error) {
	return s.Apply(ctx, ActionCreate, actor, other)
}

func (s *Service) Accept(ctx context.Context, actor, other uint) (Update, error) {
	return s.Apply(ctx, ActionAccept, actor, other)
}

func (s *Service) Decline(ctx context.Context, actor, other uint) (Update, error) {
	return s.Apply(ctx, ActionDecline, actor, other)
}

func (s *Service) Cancel(ctx context.Context, actor, other uint) (Update, error) {
	return s.Apply(ctx, ActionCancel, actor, other)
}

func (s *Service) Remove(ctx context.Context, actor, other uint) (Update, error) {
	return s.Apply(ctx, ActionRemove, actor, other)
}

// Apply runs action by actor against the edge shared with other. Storage changes
// and the request notification commit together; the push, the update broadcast
// and the broker event follow the commit.
func (s *Service) Apply(ctx context.Context, action Action, actor, other uint) (Update, error) {
	var note *models.Notification
	update := Update{Action: action, ActorID: actor}
	update.User1ID, update.User2ID = Canonical(actor, other)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edge, err := find(tx, update.User1ID, update.User2ID)
		if err != nil {
			return err
		}

		outcome, err := Transition(edge, actor, other, action)
		if err != nil {
			return err
		}
		update.Status = outcome.Next

		switch {
		case action == ActionCreate:
			var sender models.User
			if err := tx.First(&sender, actor).Error; err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}
			var recipient models.User
			if err := tx.First(&recipient, other).Error; err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}
			created := models.Friendship{User1ID: update.User1ID, User2ID: update.User2ID, Status: outcome.Next}
			if err := tx.Create(&created).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrAlreadyExists
				}
				return fmt.Errorf("create friendship: %w", err)
			}
			note = requestNotification(update, other, sender.FullName()+" sent you a friend request")

		case outcome.Delete:
			if err := tx.Delete(edge).Error; err != nil {
				return fmt.Errorf("delete friendship: %w", err)
			}
			if action == ActionDecline {
				if _, err := notification.DeleteRequestNotifications(tx, update.User1ID, update.User2ID, Sender(*edge), edge.CreatedAt); err != nil {
					return err
				}
			}

		default:
			if err := tx.Model(edge).Update("status", outcome.Next).Error; err != nil {
				return fmt.Errorf("update friendship: %w", err)
			}
			var accepter models.User
			if err := tx.First(&accepter, actor).Error; err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}
			note = requestNotification(update, other, accepter.FullName()+" accepted your friend request")
		}

		if note != nil {
			return s.notifier.Create(tx, note)
		}
		return nil
	})
	if err != nil {
		metrics.IncFriendshipTransition(string(action), metrics.ResultFailed)
		return Update{}, err
	}
	metrics.IncFriendshipTransition(string(action), metrics.ResultSuccess)

	if note != nil {
		s.notifier.Push(*note)
	}
	event := hub.Event{Type: UpdateEvent, Payload: update}
	s.pusher.SendToUser(actor, event)
	s.pusher.SendToUser(other, event)
	events.Emit(ctx, s.publisher, s.log, routingKeys[action], actor, update)

	s.log.WithFields(logrus.Fields{
		"action": action,
		"actor":  actor,
		"other":  other,
		"status": update.Status,
	}).Info("friendship updated")
	return update, nil
}

func requestNotification(u Update, to uint, message string) *models.Notification {
	return &models.Notification{
		UserID:  to,
		Message: message,
		Type:    models.NotificationRequest,
		Request: &models.RequestNotification{User1ID: u.User1ID, User2ID: u.User2ID, SenderID: u.ActorID},
	}
}

func find(db *gorm.DB, user1, user2 uint) (*models.Friendship, error) {
	var edge models.Friendship
	err := db.Where("user1_id = ? AND user2_id = ?", user1, user2).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find friendship: %w", err)
	}
	return &edge, nil
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// Get returns the edge between a and b.
func (s *Service) Get(ctx context.Context, a, b uint) (models.Friendship, error) {
	if a == b {
		return models.Friendship{}, ErrSelfRelation
	}
	user1, user2 := Canonical(a, b)
	edge, err := find(s.db.WithContext(ctx), user1, user2)
	if err != nil {
		return models.Friendship{}, err
	}
	if edge == nil {
		return models.Friendship{}, ErrNotFound
	}
	return *edge, nil
}

// AreFriends reports whether a and b share an accepted edge.
func (s *Service) AreFriends(ctx context.Context, a, b uint) (bool, error) {
	edge, err := s.Get(ctx, a, b)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSelfRelation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return edge.Status == models.StatusAccepted, nil
}

// FriendIDs returns the ids of userID's accepted friends.
func (s *Service) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var edges []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.StatusAccepted).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Other(userID))
	}
	return ids, nil
}

// ListFriends returns the accepted counterparties of userID ordered by username.
func (s *Service) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	ids, err := s.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.users(ctx, ids)
}

// ListPending returns the users with a request waiting on userID (incoming) or
// waiting on them (outgoing).
func (s *Service) ListPending(ctx context.Context, userID uint, dir Direction) ([]models.User, error) {
	// userID's own pending slot is pending1 when they are user1.
	var mine, theirs models.FriendshipStatus = models.StatusPending1, models.StatusPending2
	if dir == Outgoing {
		mine, theirs = theirs, mine
	} else if dir != Incoming {
		return nil, fmt.Errorf("unknown direction %q", dir)
	}

	var edges []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user1_id = ? AND status = ?) OR (user2_id = ? AND status = ?)", userID, mine, userID, theirs).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Other(userID))
	}
	return s.users(ctx, ids)
}

func (s *Service) users(ctx context.Context, ids []uint) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}
