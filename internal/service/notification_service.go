package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-testgen-be/internal/model"
	"ai-testgen-be/internal/pkg/logger"
	"ai-testgen-be/internal/pkg/mailer"
	"ai-testgen-be/internal/repository"
	"ai-testgen-be/pkg/events"
	pktNats "ai-testgen-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
	Broadcast(notification model.Notification)
	SendEphemeral(userID uuid.UUID, frameType string, payload map[string]interface{})
}

type NotificationService struct {
	repo         repository.NotificationRepository
	subscriber   *pktNats.Subscriber
	delivery     NotificationDelivery
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewNotificationService(repo repository.NotificationRepository, sub *pktNats.Subscriber, delivery NotificationDelivery, emailService mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:         repo,
		subscriber:   sub,
		delivery:     delivery,
		emailService: emailService,
		logger:       log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	// Subscribe to all events with a durable consumer
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.handleEvent)
	if err != nil {
		// The app keeps serving HTTP without notifications; the container
		// already logged a warning when NATS was unreachable.
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("NotificationService", fmt.Sprintf("Processing event: %s", event.EventType()), map[string]interface{}{"type": event.EventType()})

	// 1. Get Config
	// Strip the subject prefix in case the subscriber passed it through raw
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	config, err := s.repo.GetNotificationTypeByCode(ctx, typeCode)
	if err != nil {
		s.logger.Error("NotificationService", fmt.Sprintf("Type lookup failed for '%s'", typeCode), map[string]interface{}{"error": err.Error()})
		return err // redelivered; the database may be back by then
	}
	if config == nil {
		// Unknown codes stay unknown on redelivery, so drop now
		s.logger.Warn("NotificationService", fmt.Sprintf("No routing row for code '%s'", typeCode), nil)
		return nil
	}
	if !config.IsActive {
		s.logger.Info("NotificationService", fmt.Sprintf("Notification type '%s' is inactive", typeCode), nil)
		return nil
	}

	// SPECIAL HANDLING: Generation Progress
	// Progress fires on every stage operation. Storing each one would
	// flood the inbox table, so it goes out as a push-only frame and the
	// config row only controls whether pushes happen at all.
	if typeCode == "GENERATION_PROGRESS" {
		if s.delivery != nil {
			if uid := payloadUUID(event.Payload(), "user_id"); uid != nil {
				s.delivery.SendEphemeral(*uid, "generation_progress", event.Payload())
			}
		}
		return nil
	}

	// SPECIAL HANDLING: Completion Email
	// Independently of the configured notification (which lands in the
	// inbox), a finished session also mails the user its final counts.
	if typeCode == "SESSION_COMPLETED" && s.emailService != nil {
		payload := event.Payload()
		email, _ := payload["user_email"].(string)
		title, _ := payload["session_title"].(string)

		// case_count arrives as float64 after the JSON round trip
		caseCount := 0
		switch v := payload["case_count"].(type) {
		case float64:
			caseCount = int(v)
		case int:
			caseCount = v
		}

		if email != "" && s.emailAllowed(ctx, payload) {
			go func() {
				if err := s.emailService.SendSessionComplete(email, title, caseCount); err != nil {
					s.logger.Error("NotificationService", "Failed to send completion email", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	// 2. Broadcast Handling
	// Fanning a broadcast into every inbox writes one row per user, and
	// the schema requires a user_id per row anyway. Broadcasts go out
	// push-only; anyone offline at the time simply misses them.
	if config.TargetType == "BROADCAST" {
		notif := s.buildNotification(uuid.Nil, config, event)

		if s.delivery != nil {
			s.delivery.Broadcast(notif)
		}
		return nil
	}

	// 3. Resolve Recipients
	recipients, err := s.resolveRecipients(ctx, config, event)
	if err != nil {
		s.logger.Error("NotificationService", fmt.Sprintf("Error resolving recipients for %s", event.EventType()), map[string]interface{}{"error": err})
		return err // NATS will retry if we return error
	}
	s.logger.Info("NotificationService", "Recipients resolved", map[string]interface{}{"count": len(recipients), "type": config.TargetType})

	// 4. Store and push per recipient, honoring their settings. One
	// indexed read per recipient is fine here: the list is one user, or
	// the handful of admins.
	for _, userID := range recipients {
		pref, err := s.repo.GetPreferences(ctx, userID)
		if err != nil {
			s.logger.Warn("NotificationService", "Could not load preferences, using defaults", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
		if prefMutes(pref, typeCode) {
			continue
		}

		notif := s.buildNotification(userID, config, event)

		if err := s.repo.CreateNotification(ctx, &notif); err != nil {
			// One failed insert should not stop the rest of the fan-out
			s.logger.Error("NotificationService", fmt.Sprintf("Error saving notification for user %s", userID), map[string]interface{}{"error": err})
			continue
		}

		if s.delivery != nil && (pref == nil || pref.PushEnabled) {
			s.delivery.Send(userID, notif)
		}
	}

	return nil
}

// prefMutes reports whether the user muted this event code. A nil pref
// (no saved row) mutes nothing.
func prefMutes(pref *model.UserNotificationPreference, typeCode string) bool {
	if pref == nil {
		return false
	}
	for _, muted := range pref.MutedTypes {
		if muted == typeCode {
			return true
		}
	}
	return false
}

// emailAllowed checks the recipient's email switch before a completion
// mail goes out. Unknown or unparseable user ids default to allowed;
// the address came off the event, so someone meant to mail it.
func (s *NotificationService) emailAllowed(ctx context.Context, payload map[string]interface{}) bool {
	uid := payloadUUID(payload, "user_id")
	if uid == nil {
		return true
	}
	pref, err := s.repo.GetPreferences(ctx, *uid)
	if err != nil || pref == nil {
		return true
	}
	return pref.EmailEnabled
}

// payloadUUID pulls an optional uuid field out of an event payload.
func payloadUUID(payload map[string]interface{}, key string) *uuid.UUID {
	str, ok := payload[key].(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil
	}
	return &id
}

func (s *NotificationService) resolveRecipients(ctx context.Context, config *model.NotificationType, event events.Event) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID

	switch config.TargetType {
	case "SELF":
		// Every publisher puts user_id in the payload by convention; a
		// SELF event without one has nowhere to go.
		if uid := payloadUUID(event.Payload(), "user_id"); uid != nil {
			userIDs = append(userIDs, *uid)
		} else {
			s.logger.Warn("NotificationService", fmt.Sprintf("TargetType SELF but no user_id found in payload for event %s", event.EventType()), nil)
		}

	case "ADMIN", "ROLE":
		// ADMIN is shorthand for ROLE with the admin role
		role := config.TargetRole
		if config.TargetType == "ADMIN" {
			role = "admin"
		}
		users, err := s.repo.GetUsersByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			userIDs = append(userIDs, u.Id)
		}
	}

	return userIDs, nil
}

func (s *NotificationService) buildNotification(userID uuid.UUID, config *model.NotificationType, event events.Event) model.Notification {
	// Simple Template Engine
	msg := config.Template
	payload := event.Payload()

	for k, v := range payload {
		placeholder := fmt.Sprintf("{%s}", k)
		valStr := fmt.Sprintf("%v", v)
		msg = strings.ReplaceAll(msg, placeholder, valStr)
	}

	// Optional actor and entity references, if the publisher set them
	actorID := payloadUUID(payload, "actor_id")
	entityID := payloadUUID(payload, "entity_id")
	entityType, _ := payload["entity_type"].(string)

	// Metadata - enrich with action_url for deep linking
	metaMap := make(map[string]interface{})
	for k, v := range payload {
		metaMap[k] = v
	}
	// Generate action_url if entity info is present
	if entityType != "" && entityID != nil {
		metaMap["action_url"] = fmt.Sprintf("/%ss/%s", entityType, entityID.String())
	}
	metaJSON, _ := json.Marshal(metaMap)

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		ActorID:    actorID,
		TypeCode:   config.Code,
		Title:      config.DisplayName,
		Message:    msg,
		Metadata:   datatypes.JSON(metaJSON),
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
		IsRead:     false,
	}
}

// GetNotifications fetches notifications for a user.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

// GetUnreadCount fetches unread count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead marks all notifications as read for a user.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetPreferences returns the user's delivery settings, substituting the
// defaults when nothing was ever saved.
func (s *NotificationService) GetPreferences(ctx context.Context, userID uuid.UUID) (*model.UserNotificationPreference, error) {
	pref, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		pref = &model.UserNotificationPreference{
			UserID:       userID,
			MutedTypes:   datatypes.JSONSlice[string]{},
			EmailEnabled: true,
			PushEnabled:  true,
		}
	}
	return pref, nil
}

// UpdatePreferences replaces the user's settings wholesale. The client
// always sends the full set, so there is no merge to get wrong.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID uuid.UUID, mutedTypes []string, emailEnabled, pushEnabled bool) (*model.UserNotificationPreference, error) {
	if mutedTypes == nil {
		mutedTypes = []string{}
	}
	pref := &model.UserNotificationPreference{
		UserID:       userID,
		MutedTypes:   datatypes.NewJSONSlice(mutedTypes),
		EmailEnabled: emailEnabled,
		PushEnabled:  pushEnabled,
	}
	if err := s.repo.SavePreferences(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}
