package events

import "context"

// DealStream is the redis channel carrying every deal lifecycle event. The
// websocket hub and the notify bridge both subscribe to it.
const DealStream = "events:deal"

// Event types
const (
	EventDealStatusChanged = "deal_status_changed"
	EventDealFunded        = "deal_funded"
	EventDealReleased      = "deal_released"
	EventDealExpired       = "deal_expired"
	EventDealDisputed      = "deal_disputed"
	EventPaymentReminder   = "payment_reminder"
	EventBotNotification   = "bot_notification"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
