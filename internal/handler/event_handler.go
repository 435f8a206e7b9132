package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// region --- DTOs ---

type CreateEventInput struct {
	ItemID     uint    `json:"itemId" binding:"required" example:"12"`
	BusinessID *uint   `json:"businessId"`
	ChatLink   *string `json:"chatLink" binding:"omitempty,url"`
	Published  bool    `json:"published"`
}

type UpdateEventInput struct {
	BusinessID *uint   `json:"businessId"`
	ChatLink   *string `json:"chatLink" binding:"omitempty,url"`
	Published  *bool   `json:"published"`
}

// EventResponse flattens an event with its item, business and creator.
type EventResponse struct {
	ID              uint       `json:"id" example:"3"`
	ItemID          uint       `json:"itemId"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	StartTime       *time.Time `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	Privacy         string     `json:"privacy"`
	Published       bool       `json:"published"`
	BusinessID      *uint      `json:"businessId"`
	BusinessName    string     `json:"businessName,omitempty"`
	ChatLink        *string    `json:"chatLink"`
	CreatorID       uint       `json:"creatorId"`
	CreatorName     string     `json:"creatorName"`
	CreatorUsername string     `json:"creatorUsername"`
	AttendeesCount  int64      `json:"attendeesCount"`
}

type AttendeeResponse struct {
	PublicUserResponse
	Confirmed bool `json:"confirmed"`
}

// endregion

// EventHandler serves events and their attendees. Cancelling and inviting send
// notifications, so it carries the notifier and the event publisher.
type EventHandler struct {
	db        *gorm.DB
	notifier  *notification.Service
	publisher events.Publisher
	log       *logrus.Logger
}

func NewEventHandler(db *gorm.DB, notifier *notification.Service, publisher events.Publisher, log *logrus.Logger) *EventHandler {
	return &EventHandler{db: db, notifier: notifier, publisher: publisher, log: log}
}

func (h *EventHandler) response(e models.Event) EventResponse {
	resp := EventResponse{
		ID:              e.ID,
		ItemID:          e.ItemID,
		Title:           e.Item.Title,
		Description:     e.Item.Description,
		Location:        e.Item.Location,
		StartTime:       e.Item.Start,
		EndTime:         e.Item.End,
		Privacy:         string(e.Item.Privacy),
		Published:       e.Published,
		BusinessID:      e.BusinessID,
		ChatLink:        e.ChatLink,
		CreatorID:       e.Item.UserID,
		CreatorName:     e.Item.User.FullName(),
		CreatorUsername: e.Item.User.Username,
	}
	if e.Business != nil {
		resp.BusinessName = e.Business.Name
	}
	h.db.Model(&models.Attendee{}).Where("event_id = ?", e.ID).Count(&resp.AttendeesCount)
	return resp
}

func (h *EventHandler) responses(list []models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, h.response(e))
	}
	return out
}

// publicEvents selects published events on public items, joined for ordering by start.
func (h *EventHandler) publicEvents() *gorm.DB {
	return h.db.Model(&models.Event{}).
		Joins("JOIN calendar_items ON calendar_items.id = events.item_id AND calendar_items.deleted_at IS NULL").
		Where("events.published = ? AND calendar_items.privacy = ?", true, models.PrivacyPublic)
}

// loadEvent answers 404 or 500 itself.
func (h *EventHandler) loadEvent(c *gin.Context) (models.Event, bool) {
	var event models.Event
	id, ok := parseID(c, "id")
	if !ok {
		return event, false
	}
	if err := h.db.Preload("Item.User").Preload("Business").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch event"})
		}
		return event, false
	}
	return event, true
}

func (h *EventHandler) loadOwnedEvent(c *gin.Context) (models.Event, bool) {
	event, ok := h.loadEvent(c)
	if !ok {
		return event, false
	}
	if event.Item.UserID != viewerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the event creator can do this"})
		return event, false
	}
	return event, true
}

// canSee reports whether viewer may see the event: creators always, others when it
// is published and public, or published and the viewer is a friend or attendee.
func (h *EventHandler) canSee(e models.Event, viewer uint) bool {
	if e.Item.UserID == viewer {
		return true
	}
	if !e.Published {
		return false
	}
	if e.Item.Privacy == models.PrivacyPublic || areFriends(h.db, viewer, e.Item.UserID) {
		return true
	}
	var n int64
	h.db.Model(&models.Attendee{}).Where("event_id = ? AND user_id = ?", e.ID, viewer).Count(&n)
	return n > 0
}

func eventValidationError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, models.ErrEventNeedsDescription), errors.Is(err, models.ErrEventNeedsLocation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEventBusinessOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		return false
	}
	return true
}

// loadBusiness returns nil when id is nil. A missing business answers 404.
func (h *EventHandler) loadBusiness(c *gin.Context, id *uint) (*models.Business, bool) {
	if id == nil {
		return nil, true
	}
	var business models.Business
	if err := h.db.First(&business, *id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return nil, false
	}
	return &business, true
}

// region --- Listing ---

// ListEvents godoc
// @Summary      List published public events
// @Tags         events
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  PaginatedResponse[EventResponse]
// @Router       /events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	h.list(c, h.publicEvents())
}

// ListFutureEvents godoc
// @Summary      List upcoming published public events
// @Tags         events
// @Produce      json
// @Success      200    {object}  PaginatedResponse[EventResponse]
// @Router       /events/future [get]
func (h *EventHandler) ListFutureEvents(c *gin.Context) {
	h.list(c, h.publicEvents().Where("calendar_items.start > ?", time.Now()))
}

func (h *EventHandler) list(c *gin.Context, query *gorm.DB) {
	page, limit := pageParams(c, 20)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count events"})
		return
	}
	var list []models.Event
	err := query.Preload("Item.User").Preload("Business").
		Order("calendar_items.start ASC").Order("events.id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(h.responses(list), total, page, limit))
}

// GetEvent godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  EventResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	if !h.canSee(event, viewerID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, h.response(event))
}

// endregion

// region --- Management ---

// CreateEvent godoc
// @Summary      Promote a calendar item to an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      CreateEventInput  true  "Event"
// @Success      201   {object}  EventResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Item is already an event"
// @Router       /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var input CreateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var item models.CalendarItem
	if err := h.db.First(&item, input.ItemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar item not found"})
		return
	}
	if item.UserID != viewerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only create events from your own calendar items"})
		return
	}
	business, ok := h.loadBusiness(c, input.BusinessID)
	if !ok {
		return
	}

	event := models.Event{
		ItemID:     item.ID,
		BusinessID: input.BusinessID,
		ChatLink:   input.ChatLink,
		Published:  input.Published,
	}
	if err := event.Validate(item, business); err != nil {
		if !eventValidationError(c, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&event).Error; err != nil {
			return err
		}
		item.ItemType = models.ItemTypeEvent
		return tx.Omit(clause.Associations).Save(&item).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "This calendar item is already an event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	h.db.Preload("Item.User").Preload("Business").First(&event, event.ID)
	c.JSON(http.StatusCreated, h.response(event))
}

// PatchEvent godoc
// @Summary      Update an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Event ID"
// @Param        input body      UpdateEventInput  true  "Fields to change"
// @Success      200   {object}  EventResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /events/{id} [patch]
func (h *EventHandler) PatchEvent(c *gin.Context) {
	var input UpdateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, ok := h.loadOwnedEvent(c)
	if !ok {
		return
	}

	if input.BusinessID != nil {
		event.BusinessID = input.BusinessID
	}
	if input.ChatLink != nil {
		event.ChatLink = input.ChatLink
	}
	if input.Published != nil {
		event.Published = *input.Published
	}
	business, ok := h.loadBusiness(c, event.BusinessID)
	if !ok {
		return
	}
	if err := event.Validate(event.Item, business); err != nil {
		if !eventValidationError(c, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	if err := h.db.Omit(clause.Associations).Save(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
		return
	}
	event.Business = business
	c.JSON(http.StatusOK, h.response(event))
}

// DeleteEvent godoc
// @Summary      Cancel an event
// @Description  Deletes the event and notifies every attendee. The calendar item stays.
// @Tags         events
// @Security     BearerAuth
// @Param        id   path  int  true  "Event ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	event, ok := h.loadOwnedEvent(c)
	if !ok {
		return
	}

	var notes []*models.Notification
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var attendees []models.Attendee
		if err := tx.Where("event_id = ?", event.ID).Find(&attendees).Error; err != nil {
			return err
		}
		for _, a := range attendees {
			if a.UserID == event.Item.UserID {
				continue
			}
			note := &models.Notification{
				UserID:  a.UserID,
				Message: fmt.Sprintf("%s has been cancelled", titleOrDefault(event.Item.Title)),
				Type:    models.NotificationEvent,
				Event:   &models.EventNotification{EventID: event.ID, Kind: models.EventKindCancelled},
			}
			if err := h.notifier.Create(tx, note); err != nil {
				return err
			}
			notes = append(notes, note)
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Attendee{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&models.Event{}, event.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.CalendarItem{}).Where("id = ?", event.ItemID).
			UpdateColumn("item_type", models.ItemTypePersonal).Error
	})
	if err != nil {
		h.log.WithError(err).WithField("event", event.ID).Error("failed to cancel event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
		return
	}

	for _, note := range notes {
		h.notifier.Push(*note)
	}
	events.Emit(c.Request.Context(), h.publisher, h.log, events.EventCancelled, viewerID(c), map[string]any{
		"event_id":  event.ID,
		"item_id":   event.ItemID,
		"attendees": len(notes),
	})
	c.Status(http.StatusNoContent)
}

func titleOrDefault(title string) string {
	if title == "" {
		return "An event you were attending"
	}
	return title
}

// endregion

// region --- Attendance ---

// Attend godoc
// @Summary      Attend an event
// @Tags         events
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      201  {object}  models.Attendee
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /events/{id}/attend [post]
func (h *EventHandler) Attend(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	viewer := viewerID(c)
	if !h.canSee(event, viewer) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	attendee := models.Attendee{EventID: event.ID, UserID: viewer}
	if err := h.db.Omit(clause.Associations).Create(&attendee).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "You are already attending this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attend event"})
		return
	}
	c.JSON(http.StatusCreated, attendee)
}

// Unattend godoc
// @Summary      Stop attending an event
// @Tags         events
// @Security     BearerAuth
// @Param        id   path  int  true  "Event ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id}/attend [delete]
func (h *EventHandler) Unattend(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res := h.db.Where("event_id = ? AND user_id = ?", id, viewerID(c)).Delete(&models.Attendee{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave event"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not attending this event"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Confirm godoc
// @Summary      Confirm attendance
// @Tags         events
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id}/confirm [post]
func (h *EventHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res := h.db.Model(&models.Attendee{}).
		Where("event_id = ? AND user_id = ?", id, viewerID(c)).
		Update("confirmed", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm attendance"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not attending this event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance confirmed"})
}

// Invite godoc
// @Summary      Invite a user to an event
// @Description  Adds the user as an unconfirmed attendee and sends them an invite notification.
// @Tags         events
// @Security     BearerAuth
// @Param        id      path      int  true  "Event ID"
// @Param        userId  path      int  true  "Invited user ID"
// @Success      201     {object}  models.Attendee
// @Failure      403     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      409     {object}  ErrorResponse
// @Router       /events/{id}/invite/{userId} [post]
func (h *EventHandler) Invite(c *gin.Context) {
	invitee, ok := parseID(c, "userId")
	if !ok {
		return
	}
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}

	viewer := viewerID(c)
	if event.Item.UserID != viewer {
		var n int64
		h.db.Model(&models.Attendee{}).Where("event_id = ? AND user_id = ?", event.ID, viewer).Count(&n)
		if n == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the creator or attendees can invite"})
			return
		}
	}

	var inviter, user models.User
	if err := h.db.First(&user, invitee).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	h.db.First(&inviter, viewer)

	attendee := models.Attendee{EventID: event.ID, UserID: invitee}
	note := &models.Notification{
		UserID:  invitee,
		Message: fmt.Sprintf("%s invited you to %s", inviter.FullName(), titleOrDefault(event.Item.Title)),
		Type:    models.NotificationInvite,
		Event:   &models.EventNotification{EventID: event.ID, Kind: models.EventKindInvite},
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&attendee).Error; err != nil {
			return err
		}
		return h.notifier.Create(tx, note)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User is already attending this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite user"})
		return
	}

	h.notifier.Push(*note)
	c.JSON(http.StatusCreated, attendee)
}

// ListAttendees godoc
// @Summary      List event attendees
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      200  {array}   AttendeeResponse
// @Router       /events/{id}/attendees [get]
func (h *EventHandler) ListAttendees(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	viewer := viewerID(c)
	if !h.canSee(event, viewer) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var attendees []models.Attendee
	if err := h.db.Preload("User").Where("event_id = ?", event.ID).Order("user_id ASC").Find(&attendees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attendees"})
		return
	}
	out := make([]AttendeeResponse, 0, len(attendees))
	for _, a := range attendees {
		out = append(out, AttendeeResponse{
			PublicUserResponse: buildPublicUserResponse(a.User, viewer),
			Confirmed:          a.Confirmed,
		})
	}
	c.JSON(http.StatusOK, out)
}

// endregion
