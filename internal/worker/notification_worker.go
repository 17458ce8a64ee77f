package worker

import (
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/observability"
	"github.com/spec-kit/request-desk/internal/service"
)

// StartEventSubscribers attaches notification and metrics handlers to the
// dispatcher. Either may be nil.
func StartEventSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, metrics *observability.Metrics) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	metrics.ObserveEvents(dispatcher)
}
