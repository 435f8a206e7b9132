package handler

import (
	"errors"
	"net/http"

	"socialcal/backend/internal/messaging"

	"github.com/gin-gonic/gin"
)

type SendMessageInput struct {
	Content string `json:"content" binding:"required" example:"See you at eight"`
}

type MessageHandler struct {
	messages *messaging.Service
}

func NewMessageHandler(messages *messaging.Service) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetMyMessages godoc
// @Summary      List my messages
// @Description  Sent and received, newest first.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Message
// @Router       /messages/me [get]
func (h *MessageHandler) GetMyMessages(c *gin.Context) {
	list, err := h.messages.ListForUser(c.Request.Context(), viewerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetConversation godoc
// @Summary      Conversation with a user
// @Description  Oldest first. Received messages on the page are marked read.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true   "Other user ID"
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  PaginatedResponse[models.Message]
// @Router       /messages/with/{id} [get]
func (h *MessageHandler) GetConversation(c *gin.Context) {
	other, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c, 50)

	list, total, err := h.messages.Conversation(c.Request.Context(), viewerID(c), other, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(list, total, page, limit))
}

// SendMessage godoc
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Receiver ID"
// @Param        input body      SendMessageInput  true  "Message"
// @Success      201   {object}  models.Message
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /messages/{id} [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	receiver, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), viewerID(c), receiver, input.Content)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, msg)
	case errors.Is(err, messaging.ErrReceiverNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrEmptyContent),
		errors.Is(err, messaging.ErrContentTooLong),
		errors.Is(err, messaging.ErrSelfMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
	}
}
