package handler

import (
	"errors"
	"net/http"
	"strings"

	"socialcal/backend/internal/database"
	"socialcal/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type BusinessInput struct {
	Name       string  `json:"name" binding:"required" example:"Corner Cafe"`
	Email      string  `json:"email" binding:"required,email" example:"hello@cafe.example"`
	Bio        string  `json:"bio"`
	Category   *string `json:"category" example:"food"`
	PictureURL string  `json:"pictureUrl" binding:"omitempty,url"`
}

type UpdateBusinessInput struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Bio        *string `json:"bio"`
	Category   *string `json:"category"`
	PictureURL *string `json:"pictureUrl" binding:"omitempty,url"`
}

type BusinessResponse struct {
	models.Business
	FollowersCount int64 `json:"followersCount"`
	Following      bool  `json:"following"`
}

// endregion

func newBusinessResponse(b models.Business, viewer uint) BusinessResponse {
	resp := BusinessResponse{Business: b}
	database.DB.Model(&models.Follow{}).Where("business_id = ?", b.ID).Count(&resp.FollowersCount)
	var n int64
	database.DB.Model(&models.Follow{}).Where("business_id = ? AND user_id = ?", b.ID, viewer).Count(&n)
	resp.Following = n > 0
	return resp
}

// loadOwnedBusiness loads the business and checks that the viewer owns it or is an
// admin. It writes the error response itself.
func loadOwnedBusiness(c *gin.Context, id uint) (models.Business, bool) {
	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		}
		return business, false
	}

	viewer := viewerID(c)
	if business.OwnerID != viewer && !isAdmin(database.DB, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the business owner can do this"})
		return business, false
	}
	return business, true
}

// CreateBusiness godoc
// @Summary      Create a business
// @Tags         businesses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      BusinessInput  true  "Business Info"
// @Success      201   {object}  models.Business
// @Failure      400   {object}  ErrorResponse
// @Router       /businesses [post]
func CreateBusiness(c *gin.Context) {
	var input BusinessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	business := models.Business{
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.ToLower(input.Email),
		Bio:        input.Bio,
		Category:   input.Category,
		OwnerID:    viewerID(c),
		PictureURL: input.PictureURL,
	}
	if business.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
		return
	}
	if err := database.DB.Create(&business).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create business"})
		return
	}

	c.JSON(http.StatusCreated, business)
}

// GetBusinesses godoc
// @Summary      Search businesses
// @Tags         businesses
// @Produce      json
// @Param        q         query     string  false  "Name search"
// @Param        category  query     string  false  "Category"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        limit     query     int     false  "Items per page" default(10)
// @Success      200       {object}  PaginatedResponse[BusinessResponse]
// @Router       /businesses [get]
func GetBusinesses(c *gin.Context) {
	page, limit := pageParams(c, 10)

	query := database.DB.Model(&models.Business{})
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+q+"%")
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	result, err := Paginate[models.Business](query.Order("name"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch businesses"})
		return
	}

	viewer := viewerID(c)
	responses := make([]BusinessResponse, 0, len(result.Data))
	for _, b := range result.Data {
		responses = append(responses, newBusinessResponse(b, viewer))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(responses, result.Meta.TotalItems, page, limit))
}

// GetBusinessByID godoc
// @Summary      Get a business
// @Tags         businesses
// @Produce      json
// @Param        id   path      int  true  "Business ID"
// @Success      200  {object}  BusinessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /businesses/{id} [get]
func GetBusinessByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return
	}
	c.JSON(http.StatusOK, newBusinessResponse(business, viewerID(c)))
}

// UpdateBusiness godoc
// @Summary      Update a business
// @Tags         businesses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Business ID"
// @Param        input body      UpdateBusinessInput  true  "Fields to change"
// @Success      200   {object}  models.Business
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /businesses/{id} [patch]
func UpdateBusiness(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input UpdateBusinessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	business, ok := loadOwnedBusiness(c, id)
	if !ok {
		return
	}

	if input.Name != nil {
		business.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		business.Email = strings.ToLower(*input.Email)
	}
	if input.Bio != nil {
		business.Bio = *input.Bio
	}
	if input.Category != nil {
		business.Category = input.Category
	}
	if input.PictureURL != nil {
		business.PictureURL = *input.PictureURL
	}
	if business.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
		return
	}

	if err := database.DB.Save(&business).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update business"})
		return
	}
	c.JSON(http.StatusOK, business)
}

// DeleteBusiness godoc
// @Summary      Delete a business
// @Tags         businesses
// @Security     BearerAuth
// @Param        id   path  int  true  "Business ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /businesses/{id} [delete]
// @Router       /admin/businesses/{id} [delete]
func DeleteBusiness(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	business, ok := loadOwnedBusiness(c, id)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ?", business.ID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&business).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete business"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFollowBusiness godoc
// @Summary      Follow or unfollow a business
// @Description  Follows the business when the viewer does not follow it yet, and unfollows it otherwise.
// @Tags         businesses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Business ID"
// @Success      200  {object}  map[string]bool "{"following": true}"
// @Failure      404  {object}  ErrorResponse
// @Router       /businesses/{id}/follow [post]
func ToggleFollowBusiness(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)

	var business models.Business
	if err := database.DB.Select("id").First(&business, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return
	}

	follow := models.Follow{BusinessID: id, UserID: viewer}
	result := database.DB.Where("business_id = ? AND user_id = ?", id, viewer).Delete(&models.Follow{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update follow"})
		return
	}
	if result.RowsAffected > 0 {
		c.JSON(http.StatusOK, gin.H{"following": false})
		return
	}

	if err := database.DB.Create(&follow).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update follow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

// GetBusinessFollowers godoc
// @Summary      List a business's followers
// @Tags         businesses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Business ID"
// @Success      200  {array}   PublicUserResponse
// @Router       /businesses/{id}/followers [get]
func GetBusinessFollowers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var users []models.User
	err := database.DB.
		Joins("JOIN follows ON follows.user_id = users.id").
		Where("follows.business_id = ?", id).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch followers"})
		return
	}
	c.JSON(http.StatusOK, publicUsers(users, viewerID(c)))
}
