package socket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/messaging"
	"socialcal/backend/internal/notification"

	"github.com/sirupsen/logrus"
)

// Inbound frame types.
const (
	FrameFriendRequest    = "friend:request"
	FrameFriendAccept     = "friend:accept"
	FrameFriendDecline    = "friend:decline"
	FrameFriendCancel     = "friend:cancel"
	FrameFriendRemove     = "friend:remove"
	FrameMessageSend      = "message:send"
	FrameNotificationRead = "notification:read"
	FramePing             = "ping"
)

var friendActions = map[string]friendship.Action{
	FrameFriendRequest: friendship.ActionCreate,
	FrameFriendAccept:  friendship.ActionAccept,
	FrameFriendDecline: friendship.ActionDecline,
	FrameFriendCancel:  friendship.ActionCancel,
	FrameFriendRemove:  friendship.ActionRemove,
}

// clientErrors are reported to the sender verbatim. Anything else is logged and
// answered with a generic message.
var clientErrors = []error{
	friendship.ErrSelfRelation,
	friendship.ErrAlreadyExists,
	friendship.ErrNotFound,
	friendship.ErrNotRecipient,
	friendship.ErrNotSender,
	friendship.ErrNotPending,
	friendship.ErrNotAccepted,
	friendship.ErrUnknownAction,
	friendship.ErrUserNotFound,
	messaging.ErrEmptyContent,
	messaging.ErrContentTooLong,
	messaging.ErrSelfMessage,
	messaging.ErrReceiverNotFound,
	notification.ErrNotFound,
}

const internalErrorMessage = "internal error"

type friendPayload struct {
	UserID uint `json:"user_id"`
}

type messagePayload struct {
	To      uint   `json:"to"`
	Content string `json:"content"`
}

type notificationPayload struct {
	ID uint `json:"id"`
}

// handleFrame runs one inbound frame. Successful actions answer through the
// services' own pushes; the returned event, if any, goes to the sending client only.
func (h *Handler) handleFrame(ctx context.Context, userID uint, frame Frame) (hub.Event, bool) {
	if action, ok := friendActions[frame.Type]; ok {
		var p friendPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.UserID == 0 {
			return errorEvent(frame.Type, "payload must contain user_id"), true
		}
		if _, err := h.friends.Apply(ctx, action, userID, p.UserID); err != nil {
			return h.failure(userID, frame.Type, err), true
		}
		return hub.Event{}, false
	}

	switch frame.Type {
	case FrameMessageSend:
		var p messagePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.To == 0 {
			return errorEvent(frame.Type, "payload must contain to and content"), true
		}
		if _, err := h.messages.Send(ctx, userID, p.To, p.Content); err != nil {
			return h.failure(userID, frame.Type, err), true
		}
		return hub.Event{}, false

	case FrameNotificationRead:
		var p notificationPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ID == 0 {
			return errorEvent(frame.Type, "payload must contain id"), true
		}
		if err := h.notifications.MarkRead(ctx, userID, p.ID); err != nil {
			return h.failure(userID, frame.Type, err), true
		}
		return hub.Event{}, false

	case FramePing:
		return hub.Event{Type: EventPong, Payload: map[string]int64{"time": time.Now().UnixMilli()}}, true
	}

	return errorEvent(frame.Type, "unknown frame type"), true
}

func (h *Handler) failure(userID uint, frameType string, err error) hub.Event {
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return errorEvent(frameType, known.Error())
		}
	}
	h.log.WithError(err).WithFields(logrus.Fields{"user": userID, "frame": frameType}).Error("socket frame failed")
	return errorEvent(frameType, internalErrorMessage)
}
