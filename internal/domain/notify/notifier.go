package notify

import "context"

// Notifier delivers a plain text message to a customer or staff chat.
// Implementations wrap a concrete messenger (Telegram today).
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}
