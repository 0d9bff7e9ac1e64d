package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"shepherd-api/internal/domain"
)

// FCMNotifier pushes workflow events to users' devices over Firebase Cloud
// Messaging. Delivery is fire and forget: a push failure never fails the
// operation that triggered it.
type FCMNotifier struct {
	messaging *fcm.ProjectsMessagesService
	parent    string
	tokens    DeviceTokenStore
	logger    *zap.Logger
}

// NewFCMNotifier builds a notifier from service-account credentials JSON.
func NewFCMNotifier(ctx context.Context, projectID, credentialsJSON string, tokens DeviceTokenStore, logger *zap.Logger) (*FCMNotifier, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), fcm.FirebaseMessagingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FCM credentials: %w", err)
	}

	svc, err := fcm.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM service: %w", err)
	}

	return &FCMNotifier{
		messaging: svc.Projects.Messages,
		parent:    "projects/" + projectID,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// RequestDecided notifies the request's creator of the review outcome.
func (n *FCMNotifier) RequestDecided(req *domain.Request) {
	title := "Yêu cầu đã được duyệt"
	if req.Decision == domain.DecisionRejected {
		title = "Yêu cầu đã bị từ chối"
	}

	go n.sendToUser(req.CreatedBy, title, req.Title, map[string]string{
		"kind":       "request_decided",
		"request_id": req.ID,
		"decision":   req.Decision.String(),
	})
}

// TaskAssigned notifies a user of a task assigned to them.
func (n *FCMNotifier) TaskAssigned(task *domain.Task) {
	go n.sendToUser(task.AssigneeID, "Công việc mới", task.Title, map[string]string{
		"kind":    "task_assigned",
		"task_id": task.ID,
	})
}

func (n *FCMNotifier) sendToUser(userID, title, body string, data map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := n.tokens.TokensForUser(ctx, userID)
	if err != nil {
		n.logger.Warn("failed to load device tokens",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		n.logger.Debug("no device tokens registered", zap.String("user_id", userID))
		return
	}

	for _, token := range tokens {
		req := &fcm.SendMessageRequest{
			Message: &fcm.Message{
				Token: token,
				Notification: &fcm.Notification{
					Title: title,
					Body:  body,
				},
				Data: data,
			},
		}

		_, err := n.messaging.Send(n.parent, req).Context(ctx).Do()
		if err != nil {
			// Stale tokens are pruned so the registry stays clean.
			if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
				_ = n.tokens.DeleteToken(ctx, userID, token)
				n.logger.Debug("pruned stale device token", zap.String("user_id", userID))
				continue
			}
			n.logger.Warn("failed to send push notification",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
}
