package handler

import (
	"net/http"

	"socialcal/backend/internal/auth"
	"socialcal/backend/internal/events"
	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/messaging"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/middleware"
	"socialcal/backend/internal/notification"
	"socialcal/backend/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "socialcal/backend/docs"
)

// RouterDeps carries the services the routes are built from. Package-level
// handlers read database.DB, which must point at DB.
type RouterDeps struct {
	DB            *gorm.DB
	Log           *logrus.Logger
	Hub           *hub.Hub
	Friends       *friendship.Service
	Notifications *notification.Service
	Messages      *messaging.Service
	Publisher     events.Publisher
	Limiter       *middleware.RateLimiter
	JWTSecret     string
	FrontendURL   string
}

// NewRouter wires every route under /api/v1 plus the ops endpoints.
func NewRouter(d RouterDeps) *gin.Engine {
	metrics.Register()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log), middleware.Metrics(), middleware.CORS(d.FrontendURL))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	requireAuth := auth.AuthMiddleware(d.JWTSecret)
	optionalAuth := auth.OptionalAuthMiddleware(d.JWTSecret)

	friends := NewFriendHandler(d.Friends)
	eventsHandler := NewEventHandler(d.DB, d.Notifications, d.Publisher, d.Log)
	notifications := NewNotificationHandler(d.Notifications)
	messages := NewMessageHandler(d.Messages)
	sockets := socket.NewHandler(d.Hub, d.DB, d.Friends, d.Messages, d.Notifications, d.JWTSecret, d.FrontendURL, d.Log)

	apiV1 := router.Group("/api/v1")
	if d.Limiter != nil {
		apiV1.Use(middleware.RateLimit(d.Limiter))
	}
	{
		apiV1.GET("/ws", sockets.ServeWS)

		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", RegisterUser)
			authRoutes.POST("/login", LoginUser)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(requireAuth)
		{
			userRoutes.GET("", SearchUsers) // Must be before /:id
			userRoutes.GET("/me", GetMe)
			userRoutes.GET("/:id", GetUserByID)
			userRoutes.PATCH("/:id", UpdateUser)
			userRoutes.DELETE("/:id", DeleteUser)
			userRoutes.GET("/:id/friends", friends.ListUserFriends)
			userRoutes.GET("/:id/businesses", GetUserBusinesses)
			userRoutes.GET("/:id/following", GetUserFollowing)
		}

		friendRoutes := apiV1.Group("/friends")
		friendRoutes.Use(requireAuth)
		{
			friendRoutes.GET("", friends.ListFriends)
			friendRoutes.GET("/requests", friends.ListRequests)
			friendRoutes.GET("/:id", friends.GetStatus)
			friendRoutes.POST("/:id/request", friends.SendRequest)
			friendRoutes.POST("/:id/accept", friends.AcceptRequest)
			friendRoutes.POST("/:id/decline", friends.DeclineRequest)
			friendRoutes.POST("/:id/cancel", friends.CancelRequest)
			friendRoutes.DELETE("/:id", friends.RemoveFriend)
		}

		// Browsing businesses works without a token.
		publicBusinesses := apiV1.Group("/businesses")
		publicBusinesses.Use(optionalAuth)
		{
			publicBusinesses.GET("", GetBusinesses)
			publicBusinesses.GET("/:id", GetBusinessByID)
			publicBusinesses.GET("/:id/followers", GetBusinessFollowers)
			publicBusinesses.GET("/:id/items", GetBusinessItems)
			publicBusinesses.GET("/:id/items/:itemId", GetBusinessItem)
		}
		businessRoutes := apiV1.Group("/businesses")
		businessRoutes.Use(requireAuth)
		{
			businessRoutes.POST("", CreateBusiness)
			businessRoutes.PATCH("/:id", UpdateBusiness)
			businessRoutes.DELETE("/:id", DeleteBusiness)
			businessRoutes.POST("/:id/follow", ToggleFollowBusiness)
			businessRoutes.POST("/:id/items", CreateBusinessItem)
			businessRoutes.PATCH("/:id/items/:itemId", UpdateBusinessItem)
			businessRoutes.DELETE("/:id/items/:itemId", DeleteBusinessItem)
		}

		itemRoutes := apiV1.Group("/calendar-items")
		itemRoutes.Use(requireAuth)
		{
			itemRoutes.GET("/me", GetMyCalendarItems)
			itemRoutes.GET("/user/:id", GetUserCalendarItems)
			itemRoutes.GET("/:id", GetCalendarItemByID)
			itemRoutes.POST("", CreateCalendarItem)
			itemRoutes.PATCH("/:id", UpdateCalendarItem)
			itemRoutes.DELETE("/:id", DeleteCalendarItem)
		}

		publicEvents := apiV1.Group("/events")
		publicEvents.Use(optionalAuth)
		{
			publicEvents.GET("", eventsHandler.ListEvents)
			publicEvents.GET("/future", eventsHandler.ListFutureEvents)
		}
		eventRoutes := apiV1.Group("/events")
		eventRoutes.Use(requireAuth)
		{
			eventRoutes.GET("/:id", eventsHandler.GetEvent)
			eventRoutes.POST("", eventsHandler.CreateEvent)
			eventRoutes.PATCH("/:id", eventsHandler.PatchEvent)
			eventRoutes.DELETE("/:id", eventsHandler.DeleteEvent)
			eventRoutes.POST("/:id/attend", eventsHandler.Attend)
			eventRoutes.DELETE("/:id/attend", eventsHandler.Unattend)
			eventRoutes.POST("/:id/confirm", eventsHandler.Confirm)
			eventRoutes.POST("/:id/invite/:userId", eventsHandler.Invite)
			eventRoutes.GET("/:id/attendees", eventsHandler.ListAttendees)
		}

		reminderRoutes := apiV1.Group("/reminders")
		reminderRoutes.Use(requireAuth)
		{
			reminderRoutes.GET("", GetMyReminders)
			reminderRoutes.POST("", CreateReminder)
			reminderRoutes.DELETE("/:id", DeleteReminder)
		}

		notificationRoutes := apiV1.Group("/notifications")
		notificationRoutes.Use(requireAuth)
		{
			notificationRoutes.GET("", notifications.ListNotifications)
			notificationRoutes.GET("/stats", notifications.GetNotificationStats)
			notificationRoutes.PATCH("/:id/read", notifications.MarkNotificationRead)
			notificationRoutes.POST("/read-all", notifications.MarkAllNotificationsRead)
			notificationRoutes.DELETE("/:id", notifications.DeleteNotification)
		}

		messageRoutes := apiV1.Group("/messages")
		messageRoutes.Use(requireAuth)
		{
			messageRoutes.GET("/me", messages.GetMyMessages)
			messageRoutes.GET("/with/:id", messages.GetConversation)
			messageRoutes.POST("/:id", messages.SendMessage)
		}

		// Admin routes reuse the owner-or-admin handlers behind the admin check.
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(requireAuth, auth.AdminMiddleware(d.DB))
		{
			adminRoutes.DELETE("/users/:id", DeleteUser)
			adminRoutes.DELETE("/businesses/:id", DeleteBusiness)
		}
	}

	return router
}
