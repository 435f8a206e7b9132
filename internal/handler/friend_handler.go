package handler

import (
	"errors"
	"net/http"

	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// FriendshipStatusResponse is the state of the edge between the viewer and another user.
type FriendshipStatusResponse struct {
	UserID   uint                    `json:"userId"`
	Status   models.FriendshipStatus `json:"status" example:"pending1"`
	Relation string                  `json:"relation" example:"incoming"`
}

type FriendHandler struct {
	friends *friendship.Service
}

func NewFriendHandler(friends *friendship.Service) *FriendHandler {
	return &FriendHandler{friends: friends}
}

// friendshipError maps friendship sentinels to HTTP statuses.
func friendshipError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, friendship.ErrSelfRelation):
		status = http.StatusBadRequest
	case errors.Is(err, friendship.ErrUserNotFound), errors.Is(err, friendship.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, friendship.ErrNotRecipient), errors.Is(err, friendship.ErrNotSender):
		status = http.StatusForbidden
	case errors.Is(err, friendship.ErrAlreadyExists),
		errors.Is(err, friendship.ErrNotPending),
		errors.Is(err, friendship.ErrNotAccepted):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "Failed to update friendship"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ListFriends godoc
// @Summary      List my friends
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Router       /friends [get]
func (h *FriendHandler) ListFriends(c *gin.Context) {
	h.respondFriends(c, viewerID(c))
}

// ListUserFriends godoc
// @Summary      List a user's friends
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   PublicUserResponse
// @Router       /users/{id}/friends [get]
func (h *FriendHandler) ListUserFriends(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.respondFriends(c, id)
}

func (h *FriendHandler) respondFriends(c *gin.Context, userID uint) {
	users, err := h.friends.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}
	c.JSON(http.StatusOK, publicUsers(users, viewerID(c)))
}

// ListRequests godoc
// @Summary      List pending friend requests
// @Description  Incoming requests wait on the viewer; outgoing requests wait on the other user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        direction query     string  false  "incoming or outgoing" default(incoming)
// @Success      200       {array}   PublicUserResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /friends/requests [get]
func (h *FriendHandler) ListRequests(c *gin.Context) {
	dir := friendship.Direction(c.DefaultQuery("direction", string(friendship.Incoming)))
	if dir != friendship.Incoming && dir != friendship.Outgoing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be incoming or outgoing"})
		return
	}

	viewer := viewerID(c)
	users, err := h.friends.ListPending(c.Request.Context(), viewer, dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}
	c.JSON(http.StatusOK, publicUsers(users, viewer))
}

// GetStatus godoc
// @Summary      Friendship status with a user
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Other user ID"
// @Success      200  {object}  FriendshipStatusResponse
// @Router       /friends/{id} [get]
func (h *FriendHandler) GetStatus(c *gin.Context) {
	other, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)

	resp := FriendshipStatusResponse{UserID: other, Status: friendship.StatusNone, Relation: RelationNone}
	edge, err := h.friends.Get(c.Request.Context(), viewer, other)
	switch {
	case err == nil:
		resp.Status = edge.Status
		switch {
		case edge.Status == models.StatusAccepted:
			resp.Relation = RelationFriends
		case friendship.Recipient(edge) == viewer:
			resp.Relation = RelationIncoming
		default:
			resp.Relation = RelationOutgoing
		}
	case errors.Is(err, friendship.ErrSelfRelation):
		resp.Relation = RelationSelf
	case !errors.Is(err, friendship.ErrNotFound):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friendship"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FriendHandler) apply(c *gin.Context, action friendship.Action, success int) {
	other, ok := parseID(c, "id")
	if !ok {
		return
	}

	update, err := h.friends.Apply(c.Request.Context(), action, viewerID(c), other)
	if err != nil {
		friendshipError(c, err)
		return
	}
	c.JSON(success, update)
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Creates a pending friendship and notifies the other user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  friendship.Update
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Friendship already exists"
// @Router       /friends/{id}/request [post]
func (h *FriendHandler) SendRequest(c *gin.Context) {
	h.apply(c, friendship.ActionCreate, http.StatusCreated)
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  friendship.Update
// @Failure      403  {object}  ErrorResponse "Only the recipient can accept"
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      409  {object}  ErrorResponse "Not pending"
// @Router       /friends/{id}/accept [post]
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	h.apply(c, friendship.ActionAccept, http.StatusOK)
}

// DeclineRequest godoc
// @Summary      Decline friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  friendship.Update
// @Router       /friends/{id}/decline [post]
func (h *FriendHandler) DeclineRequest(c *gin.Context) {
	h.apply(c, friendship.ActionDecline, http.StatusOK)
}

// CancelRequest godoc
// @Summary      Cancel a sent friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  friendship.Update
// @Router       /friends/{id}/cancel [post]
func (h *FriendHandler) CancelRequest(c *gin.Context) {
	h.apply(c, friendship.ActionCancel, http.StatusOK)
}

// RemoveFriend godoc
// @Summary      Remove a friend
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Friend User ID"
// @Success      200  {object}  friendship.Update
// @Router       /friends/{id} [delete]
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	h.apply(c, friendship.ActionRemove, http.StatusOK)
}

func publicUsers(users []models.User, viewer uint) []PublicUserResponse {
	responses := make([]PublicUserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, buildPublicUserResponse(u, viewer))
	}
	return responses
}
