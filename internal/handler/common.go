package handler

import (
	"net/http"
	"strconv"

	"socialcal/backend/internal/auth"
	"socialcal/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse represents a generic confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Done"`
}

// viewerID returns the authenticated user. Routes using it sit behind AuthMiddleware.
func viewerID(c *gin.Context) uint {
	id, _ := auth.CurrentUserID(c)
	return id
}

// parseID reads a positive integer path parameter, answering 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func isAdmin(db *gorm.DB, userID uint) bool {
	var user models.User
	if err := db.Select("id", "is_admin").First(&user, userID).Error; err != nil {
		return false
	}
	return user.IsAdmin
}
