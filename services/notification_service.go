package services

import "log"

// Notifier dispatches user-facing notifications. Dispatch is fire-and-forget:
// failures never propagate to the mutation that triggered them.
type Notifier interface {
	Notify(event string, payload interface{})
}

// NotificationService is the default Notifier. Delivery runs through an
// external pipeline; here the event is only logged.
type NotificationService struct{}

func (s *NotificationService) Notify(event string, payload interface{}) {
	log.Printf("🔔 Notification event %s: %+v", event, payload)
}
