package handler

import (
	"errors"
	"net/http"
	"time"

	"socialcal/backend/internal/database"
	"socialcal/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

// CalendarItemInput is used to create an item. ItemType defaults to personal and
// Privacy to private.
type CalendarItemInput struct {
	Title       string          `json:"title" binding:"required" example:"Dentist"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Start       *time.Time      `json:"start" example:"2025-03-01T10:00:00Z"`
	End         *time.Time      `json:"end" example:"2025-03-01T11:00:00Z"`
	ItemType    models.ItemType `json:"itemType" example:"personal"`
	Privacy     models.Privacy  `json:"privacy" example:"private"`
}

type UpdateCalendarItemInput struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Location    *string          `json:"location"`
	Start       *time.Time       `json:"start"`
	End         *time.Time       `json:"end"`
	ItemType    *models.ItemType `json:"itemType"`
	Privacy     *models.Privacy  `json:"privacy"`
}

// endregion

// itemError answers a failed save, mapping model validation errors to 400.
func itemError(c *gin.Context, err error, action string) {
	if errors.Is(err, models.ErrItemTimeRange) || errors.Is(err, models.ErrItemType) || errors.Is(err, models.ErrItemPrivacy) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action + " calendar item"})
}

func (in UpdateCalendarItemInput) apply(item *models.CalendarItem) {
	if in.Title != nil {
		item.Title = *in.Title
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Location != nil {
		item.Location = *in.Location
	}
	if in.Start != nil {
		item.Start = in.Start
	}
	if in.End != nil {
		item.End = in.End
	}
	if in.ItemType != nil {
		item.ItemType = *in.ItemType
	}
	if in.Privacy != nil {
		item.Privacy = *in.Privacy
	}
}

// withRange narrows a query to items overlapping the from/to query parameters
// (RFC 3339). Invalid values are ignored.
func withRange(c *gin.Context, query *gorm.DB) *gorm.DB {
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		query = query.Where("start >= ?", from)
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		query = query.Where("start <= ?", to)
	}
	return query
}

func findItem(c *gin.Context, id uint) (models.CalendarItem, bool) {
	var item models.CalendarItem
	if err := database.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Calendar item not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calendar item"})
		}
		return item, false
	}
	return item, true
}

// region --- User Calendar Items ---

// GetMyCalendarItems godoc
// @Summary      List my calendar items
// @Tags         calendar-items
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "Start lower bound (RFC 3339)"
// @Param        to    query     string  false  "Start upper bound (RFC 3339)"
// @Success      200   {array}   models.CalendarItem
// @Router       /calendar-items/me [get]
func GetMyCalendarItems(c *gin.Context) {
	items := []models.CalendarItem{}
	query := withRange(c, database.DB.Where("user_id = ?", viewerID(c)))
	if err := query.Order("start ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calendar items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetUserCalendarItems godoc
// @Summary      List a friend's public calendar items
// @Tags         calendar-items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   models.CalendarItem
// @Failure      403  {object}  ErrorResponse "Not friends"
// @Router       /calendar-items/user/{id} [get]
func GetUserCalendarItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)

	query := database.DB.Where("user_id = ?", id)
	if id != viewer {
		if !areFriends(database.DB, viewer, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view calendar items of your friends"})
			return
		}
		query = query.Where("privacy = ?", models.PrivacyPublic)
	}

	items := []models.CalendarItem{}
	if err := withRange(c, query).Order("start ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calendar items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetCalendarItemByID godoc
// @Summary      Get a calendar item
// @Description  Owners see any of their items; friends see public items.
// @Tags         calendar-items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  models.CalendarItem
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /calendar-items/{id} [get]
func GetCalendarItemByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, ok := findItem(c, id)
	if !ok {
		return
	}

	viewer := viewerID(c)
	if item.UserID != viewer {
		if item.Privacy == models.PrivacyPrivate {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are unauthorized to view this item"})
			return
		}
		if !areFriends(database.DB, viewer, item.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view calendar items of your friends"})
			return
		}
	}
	c.JSON(http.StatusOK, item)
}

// CreateCalendarItem godoc
// @Summary      Create a calendar item
// @Tags         calendar-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      CalendarItemInput  true  "Item"
// @Success      201   {object}  models.CalendarItem
// @Failure      400   {object}  ErrorResponse
// @Router       /calendar-items [post]
func CreateCalendarItem(c *gin.Context) {
	var input CalendarItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.CalendarItem{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		ItemType:    input.ItemType,
		Privacy:     input.Privacy,
		UserID:      viewerID(c),
	}
	if err := database.DB.Create(&item).Error; err != nil {
		itemError(c, err, "create")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateCalendarItem godoc
// @Summary      Update a calendar item
// @Tags         calendar-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                      true  "Item ID"
// @Param        input body      UpdateCalendarItemInput  true  "Fields to change"
// @Success      200   {object}  models.CalendarItem
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /calendar-items/{id} [patch]
func UpdateCalendarItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input UpdateCalendarItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, ok := findItem(c, id)
	if !ok {
		return
	}
	if item.UserID != viewerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized to edit this calendar item"})
		return
	}

	input.apply(&item)
	if err := database.DB.Save(&item).Error; err != nil {
		itemError(c, err, "update")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteCalendarItem godoc
// @Summary      Delete a calendar item
// @Tags         calendar-items
// @Security     BearerAuth
// @Param        id   path  int  true  "Item ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /calendar-items/{id} [delete]
func DeleteCalendarItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, ok := findItem(c, id)
	if !ok {
		return
	}
	if item.UserID != viewerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized to delete this calendar item"})
		return
	}

	if err := deleteItem(database.DB, item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete calendar item"})
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteItem removes an item with its reminders and the event promoted from it.
func deleteItem(db *gorm.DB, item models.CalendarItem) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("calendar_item_id = ?", item.ID).Delete(&models.Reminder{}).Error; err != nil {
			return err
		}

		var eventIDs []uint
		if err := tx.Model(&models.Event{}).Where("item_id = ?", item.ID).Pluck("id", &eventIDs).Error; err != nil {
			return err
		}
		if len(eventIDs) > 0 {
			if err := tx.Where("event_id IN ?", eventIDs).Delete(&models.Attendee{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("id IN ?", eventIDs).Delete(&models.Event{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&item).Error
	})
}

// endregion

// region --- Business Calendar Items ---

// GetBusinessItems godoc
// @Summary      List a business's calendar items
// @Description  Public items only, unless the viewer owns the business.
// @Tags         business-items
// @Produce      json
// @Param        id   path      int  true  "Business ID"
// @Success      200  {array}   models.CalendarItem
// @Router       /businesses/{id}/items [get]
func GetBusinessItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return
	}

	query := database.DB.Where("business_id = ?", id)
	if business.OwnerID != viewerID(c) {
		query = query.Where("privacy = ?", models.PrivacyPublic)
	}

	items := []models.CalendarItem{}
	if err := withRange(c, query).Order("start ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calendar items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetBusinessItem godoc
// @Summary      Get one business calendar item
// @Tags         business-items
// @Produce      json
// @Param        id      path      int  true  "Business ID"
// @Param        itemId  path      int  true  "Item ID"
// @Success      200     {object}  models.CalendarItem
// @Failure      404     {object}  ErrorResponse
// @Router       /businesses/{id}/items/{itemId} [get]
func GetBusinessItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var item models.CalendarItem
	if err := database.DB.Preload("Business").Where("id = ? AND business_id = ?", itemID, id).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar item not found for this business"})
		return
	}
	if item.Privacy == models.PrivacyPrivate && (item.Business == nil || item.Business.OwnerID != viewerID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar item not found for this business"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateBusinessItem godoc
// @Summary      Create a business calendar item
// @Tags         business-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Business ID"
// @Param        input body      CalendarItemInput  true  "Item"
// @Success      201   {object}  models.CalendarItem
// @Failure      403   {object}  ErrorResponse
// @Router       /businesses/{id}/items [post]
func CreateBusinessItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input CalendarItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	business, ok := loadOwnedBusiness(c, id)
	if !ok {
		return
	}

	item := models.CalendarItem{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		ItemType:    input.ItemType,
		Privacy:     input.Privacy,
		BusinessID:  &business.ID,
		UserID:      business.OwnerID,
	}
	if err := database.DB.Create(&item).Error; err != nil {
		itemError(c, err, "create")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateBusinessItem godoc
// @Summary      Update a business calendar item
// @Tags         business-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int                      true  "Business ID"
// @Param        itemId  path      int                      true  "Item ID"
// @Param        input   body      UpdateCalendarItemInput  true  "Fields to change"
// @Success      200     {object}  models.CalendarItem
// @Router       /businesses/{id}/items/{itemId} [patch]
func UpdateBusinessItem(c *gin.Context) {
	item, ok := loadOwnedBusinessItem(c)
	if !ok {
		return
	}
	var input UpdateCalendarItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input.apply(&item)
	if err := database.DB.Save(&item).Error; err != nil {
		itemError(c, err, "update")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteBusinessItem godoc
// @Summary      Delete a business calendar item
// @Tags         business-items
// @Security     BearerAuth
// @Param        id      path  int  true  "Business ID"
// @Param        itemId  path  int  true  "Item ID"
// @Success      204
// @Router       /businesses/{id}/items/{itemId} [delete]
func DeleteBusinessItem(c *gin.Context) {
	item, ok := loadOwnedBusinessItem(c)
	if !ok {
		return
	}
	if err := deleteItem(database.DB, item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete calendar item"})
		return
	}
	c.Status(http.StatusNoContent)
}

func loadOwnedBusinessItem(c *gin.Context) (models.CalendarItem, bool) {
	var item models.CalendarItem
	id, ok := parseID(c, "id")
	if !ok {
		return item, false
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return item, false
	}
	if _, ok := loadOwnedBusiness(c, id); !ok {
		return item, false
	}

	if err := database.DB.Where("id = ? AND business_id = ?", itemID, id).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar item not found for this business"})
		return item, false
	}
	return item, true
}

// endregion
