package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventRelay forwards every dispatched event to the external channel when a
// publisher is available.
func StartEventRelay(dispatcher events.Dispatcher, publisher events.Publisher, channel string, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil || channel == "" {
		logger.Info("event relay disabled")
		return
	}
	events.NewRelay(publisher, channel).Attach(dispatcher)
	logger.Info("event relay attached", zap.String("channel", channel))
}
