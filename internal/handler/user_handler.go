package handler

import (
	"errors"
	"net/http"
	"strings"

	"socialcal/backend/internal/auth"
	"socialcal/backend/internal/database"
	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/models"
	"socialcal/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	FirstName string `json:"firstName" binding:"required" example:"Ada"`
	LastName  string `json:"lastName" binding:"required" example:"Lovelace"`
	Username  string `json:"username" binding:"required,min=3,max=20" example:"ada"`
	Email     string `json:"email" binding:"required,email" example:"ada@example.com"`
	Password  string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"ada"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// UpdateUserInput holds the editable profile fields. Omitted fields are kept.
type UpdateUserInput struct {
	FirstName      *string `json:"firstName" binding:"omitempty,min=1"`
	LastName       *string `json:"lastName" binding:"omitempty,min=1"`
	Username       *string `json:"username" binding:"omitempty,min=3,max=20"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,url"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string              `json:"token"`
	User  PrivateUserResponse `json:"user"`
}

// Relationship labels as seen by the viewer.
const (
	RelationNone     = "none"
	RelationFriends  = "friends"
	RelationIncoming = "incoming"
	RelationOutgoing = "outgoing"
	RelationSelf     = "self"
)

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID             uint    `json:"id" example:"1"`
	FirstName      string  `json:"firstName" example:"Ada"`
	LastName       string  `json:"lastName" example:"Lovelace"`
	Username       string  `json:"username" example:"ada"`
	Bio            *string `json:"bio"`
	ProfilePicture string  `json:"profilePicture"`
	FriendsCount   int64   `json:"friendsCount"`
	FollowingCount int64   `json:"followingCount"`
	Relation       string  `json:"relation" example:"friends"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID             uint    `json:"id" example:"1"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Username       string  `json:"username"`
	Email          string  `json:"email" example:"ada@example.com"`
	Bio            *string `json:"bio"`
	ProfilePicture string  `json:"profilePicture"`
	IsAdmin        bool    `json:"isAdmin"`
	FriendsCount   int64   `json:"friendsCount"`
	FollowingCount int64   `json:"followingCount"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	var existingUser models.User
	if err := database.DB.Where("username = ? OR email = ?", input.Username, input.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: buildPrivateUserResponse(user)})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	login := strings.TrimSpace(input.Login)
	if err := database.DB.Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error; err != nil {
		// Unknown logins get the same answer as a bad password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: buildPrivateUserResponse(user)})
}

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by username or name with pagination. The viewer is excluded.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      401   {object}  ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewer := viewerID(c)
	page, limit := pageParams(c, 10)

	query := database.DB.Model(&models.User{}).Where("id <> ?", viewer)
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}

	result, err := Paginate[models.User](query.Order("username"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	responses := make([]PublicUserResponse, 0, len(result.Data))
	for _, user := range result.Data {
		responses = append(responses, buildPublicUserResponse(user, viewer))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(responses, result.Meta.TotalItems, page, limit))
}

// GetMe godoc
// @Summary      Get my profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, viewerID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// GetUserByID godoc
// @Summary      Get a user's public profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func GetUserByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPublicUserResponse(user, viewerID(c)))
}

// UpdateUser godoc
// @Summary      Update a profile
// @Description  Updates the given fields of a profile. Allowed for the user themself or an admin.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "User ID"
// @Param        input body      UpdateUserInput  true  "Fields to change"
// @Success      200   {object}  PrivateUserResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /users/{id} [patch]
func UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)
	if viewer != id && !isAdmin(database.DB, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own profile"})
		return
	}

	var input UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Username != nil {
		updates["username"] = *input.Username
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(*input.Email)
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.ProfilePicture != nil {
		updates["profile_picture"] = *input.ProfilePicture
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}
	database.DB.First(&user, id)

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// DeleteUser godoc
// @Summary      Delete an account
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "User ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [delete]
// @Router       /admin/users/{id} [delete]
func DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)
	if viewer != id && !isAdmin(database.DB, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own account"})
		return
	}

	// Hard delete so the foreign keys cascade to friendships, items and messages.
	result := database.DB.Unscoped().Delete(&models.User{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUserBusinesses godoc
// @Summary      List the businesses a user owns
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   models.Business
// @Router       /users/{id}/businesses [get]
func GetUserBusinesses(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	businesses := []models.Business{}
	if err := database.DB.Where("owner_id = ?", id).Order("name").Find(&businesses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch businesses"})
		return
	}
	c.JSON(http.StatusOK, businesses)
}

// GetUserFollowing godoc
// @Summary      List the businesses a user follows
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   models.Business
// @Router       /users/{id}/following [get]
func GetUserFollowing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	businesses := []models.Business{}
	err := database.DB.
		Joins("JOIN follows ON follows.business_id = businesses.id").
		Where("follows.user_id = ?", id).
		Order("businesses.name").
		Find(&businesses).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch followed businesses"})
		return
	}
	c.JSON(http.StatusOK, businesses)
}

// endregion

// region --- Helpers ---

func countFriends(userID uint) int64 {
	var n int64
	database.DB.Model(&models.Friendship{}).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.StatusAccepted).
		Count(&n)
	return n
}

func countFollowing(userID uint) int64 {
	var n int64
	database.DB.Model(&models.Follow{}).Where("user_id = ?", userID).Count(&n)
	return n
}

// relationTo labels the edge between viewer and target from the viewer's side.
func relationTo(viewer, target uint) string {
	if viewer == target {
		return RelationSelf
	}
	user1, user2 := friendship.Canonical(viewer, target)
	var edge models.Friendship
	if err := database.DB.Where("user1_id = ? AND user2_id = ?", user1, user2).First(&edge).Error; err != nil {
		return RelationNone
	}
	switch {
	case edge.Status == models.StatusAccepted:
		return RelationFriends
	case friendship.Recipient(edge) == viewer:
		return RelationIncoming
	default:
		return RelationOutgoing
	}
}

func buildPublicUserResponse(targetUser models.User, viewer uint) PublicUserResponse {
	return PublicUserResponse{
		ID:             targetUser.ID,
		FirstName:      targetUser.FirstName,
		LastName:       targetUser.LastName,
		Username:       targetUser.Username,
		Bio:            targetUser.Bio,
		ProfilePicture: targetUser.ProfilePicture,
		FriendsCount:   countFriends(targetUser.ID),
		FollowingCount: countFollowing(targetUser.ID),
		Relation:       relationTo(viewer, targetUser.ID),
	}
}

func buildPrivateUserResponse(user models.User) PrivateUserResponse {
	return PrivateUserResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		Email:          user.Email,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		IsAdmin:        user.IsAdmin,
		FriendsCount:   countFriends(user.ID),
		FollowingCount: countFollowing(user.ID),
	}
}

// areFriends reports whether a and b share an accepted friendship.
func areFriends(db *gorm.DB, a, b uint) bool {
	if a == b {
		return false
	}
	user1, user2 := friendship.Canonical(a, b)
	var n int64
	db.Model(&models.Friendship{}).
		Where("user1_id = ? AND user2_id = ? AND status = ?", user1, user2, models.StatusAccepted).
		Count(&n)
	return n > 0
}

// endregion
