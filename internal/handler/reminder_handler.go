package handler

import (
	"errors"
	"net/http"

	"socialcal/backend/internal/database"
	"socialcal/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

type ReminderInput struct {
	CalendarItemID uint             `json:"calendarItemId" binding:"required" example:"12"`
	TimeValue      int              `json:"timeValue" binding:"required" example:"30"`
	TimeScale      models.TimeScale `json:"timeScale" binding:"required" example:"minutes"`
}

// GetMyReminders godoc
// @Summary      List my reminders
// @Description  Optionally filtered to one calendar item.
// @Tags         reminders
// @Produce      json
// @Security     BearerAuth
// @Param        itemId  query     int  false  "Calendar item ID"
// @Success      200     {array}   models.Reminder
// @Router       /reminders [get]
func GetMyReminders(c *gin.Context) {
	query := database.DB.Where("owner_id = ?", viewerID(c))
	if itemID := c.Query("itemId"); itemID != "" {
		query = query.Where("calendar_item_id = ?", itemID)
	}

	reminders := []models.Reminder{}
	if err := query.Order("id ASC").Find(&reminders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminders"})
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// CreateReminder godoc
// @Summary      Add a reminder to one of my calendar items
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      ReminderInput  true  "Reminder"
// @Success      201   {object}  models.Reminder
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /reminders [post]
func CreateReminder(c *gin.Context) {
	var input ReminderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, ok := findItem(c, input.CalendarItemID)
	if !ok {
		return
	}
	viewer := viewerID(c)
	if item.UserID != viewer {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only set reminders on your own calendar items"})
		return
	}

	reminder := models.Reminder{
		TimeValue:      input.TimeValue,
		TimeScale:      input.TimeScale,
		CalendarItemID: item.ID,
		OwnerID:        viewer,
	}
	if err := database.DB.Omit(clause.Associations).Create(&reminder).Error; err != nil {
		if errors.Is(err, models.ErrReminderTimeValue) || errors.Is(err, models.ErrReminderTimeScale) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reminder"})
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

// DeleteReminder godoc
// @Summary      Delete a reminder
// @Tags         reminders
// @Security     BearerAuth
// @Param        id   path  int  true  "Reminder ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /reminders/{id} [delete]
func DeleteReminder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res := database.DB.Where("id = ? AND owner_id = ?", id, viewerID(c)).Delete(&models.Reminder{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete reminder"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
