package handler

import (
	"errors"
	"os"
	"time"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/pkg/logger"
	"ai-testgen-be/internal/pkg/serverutils"
	"ai-testgen-be/internal/repository"
	"ai-testgen-be/internal/service"
	internalWS "ai-testgen-be/internal/websocket"
	"ai-testgen-be/pkg/events"
	pktNats "ai-testgen-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NotificationHandler owns the inbox endpoints plus the websocket
// upgrade that feeds live frames to the browser.
type NotificationHandler struct {
	service   *service.NotificationService
	publisher *pktNats.Publisher
	hub       *internalWS.Hub
	logger    logger.ILogger
}

func NewNotificationHandler(service *service.NotificationService, pub *pktNats.Publisher, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		publisher: pub,
		hub:       hub,
		logger:    log,
	}
}

// currentUserID reads the id the JWT middleware stored in locals.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	idStr, ok := c.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}

// jsonError answers with the same envelope the controllers use.
func jsonError(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(serverutils.ErrorResponse(code, msg))
}

// ServeWs authenticates the handshake and hands the connection to the
// hub. Browsers cannot set headers on websocket requests, so the token
// arrives as ?token=; tooling may still use the Authorization header.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return jsonError(c, fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')")
	}

	// Same env-sourced secret the HTTP middleware verifies against
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("NotificationHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return jsonError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid token claims")
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Token missing user_id")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid user ID format in token")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(c *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, c, userID)
			h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// GetNotifications returns one page of the user's inbox.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.service.GetNotifications(c.UserContext(), userID, limit, offset)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Notifications retrieved", fiber.Map{
		"items": notifications,
		"total": total,
		"page":  offset/limit + 1,
		"limit": limit,
	}))
}

// GetUnreadCount feeds the badge counter.
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	count, err := h.service.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Unread count retrieved", fiber.Map{"count": count}))
}

// MarkAsRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid ID")
	}

	if err := h.service.MarkAsRead(c.UserContext(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Notification not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse[any]("Notification marked as read", nil))
}

// MarkAllAsRead clears the whole unread set in one call.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if err := h.service.MarkAllAsRead(c.UserContext(), userID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse[any]("All notifications marked as read", nil))
}

// GetPreferences returns the caller's delivery settings, defaulted if
// they never saved any.
func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	pref, err := h.service.GetPreferences(c.UserContext(), userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Preferences retrieved", pref))
}

// UpdatePreferences replaces the caller's delivery settings. Muted
// codes stop inbox rows entirely; the two flags gate push and email
// delivery of whatever is not muted.
func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	type Request struct {
		MutedTypes   []string `json:"muted_types"`
		EmailEnabled *bool    `json:"email_enabled"`
		PushEnabled  *bool    `json:"push_enabled"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	// Pointers tell absent flags apart from explicit false; absent means on
	emailEnabled := req.EmailEnabled == nil || *req.EmailEnabled
	pushEnabled := req.PushEnabled == nil || *req.PushEnabled

	pref, err := h.service.UpdatePreferences(c.UserContext(), userID, req.MutedTypes, emailEnabled, pushEnabled)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Preferences updated", pref))
}

// DebugTriggerEvent publishes an arbitrary event so the whole
// subscribe-store-push chain can be exercised without generating.
func (h *NotificationHandler) DebugTriggerEvent(c *fiber.Ctx) error {
	type Request struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	if req.Type == "" {
		req.Type = "TEST_EVENT"
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}

	// Default the target to the caller so the frame comes back to them
	if _, ok := req.Payload["user_id"]; !ok {
		if uid := c.Locals("user_id"); uid != nil {
			req.Payload["user_id"] = uid
		}
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}

	if h.publisher == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Event publisher not configured")
	}

	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Event published", evt))
}

// Broadcast queues a system-wide notification. Admin only.
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	if role, _ := c.Locals("user_role").(string); role != string(entity.UserRoleAdmin) {
		return jsonError(c, fiber.StatusForbidden, "Admin role required")
	}

	type Request struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	if req.Title == "" || req.Message == "" {
		return jsonError(c, fiber.StatusBadRequest, "Title and Message are required")
	}

	evt := events.BaseEvent{
		Type: "SYSTEM_BROADCAST",
		Data: map[string]interface{}{
			"title":   req.Title,
			"message": req.Message,
		},
		OccurredAt: time.Now(),
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(serverutils.SuccessResponse[any]("Broadcast queued", nil))
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(serverutils.JwtMiddleware)
	notif.Get("/", h.GetNotifications)
	notif.Get("/unread-count", h.GetUnreadCount) // Before :id so it does not match as a param
	notif.Get("/preferences", h.GetPreferences)
	notif.Put("/preferences", h.UpdatePreferences)
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Post("/broadcast", h.Broadcast) // Admin gated inside the handler

	debug := router.Group("/debug")
	debug.Post("/trigger-notification", h.DebugTriggerEvent)

	// WebSocket
	router.Get("/ws", h.ServeWs)
}
