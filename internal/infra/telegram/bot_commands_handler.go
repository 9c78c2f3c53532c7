package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"juice_subscription_bot/internal/app"
	"juice_subscription_bot/internal/domain/subscription"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	skipButtonUnique   = "skip"
	upcomingPerMessage = 5
)

// RegisterBotCommands registers /start, /help and the customer commands.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	svc *app.SubscriptionService,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			return c.Send(fmt.Sprintf("Hello %s! Use /help for the operator commands.", c.Sender().FirstName))
		}

		subs, _, err := svc.UpcomingForCustomer(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Error checking customer subscriptions for /start")
			return c.Send(userMessage(err))
		}
		if len(subs) > 0 {
			return c.Send(fmt.Sprintf("Hello %s! You have %d active subscription(s). Use /my_deliveries to see what is coming.", subs[0].CustomerName, len(subs)))
		}
		return c.Send("Hello! I send delivery reminders for fruit-bowl and juice subscriptions. Once you subscribe, your schedule will show up here.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID).Info("Processing /help command")

		if senderID == adminTelegramID {
			var helpText strings.Builder
			helpText.WriteString("Operator commands:\n\n")
			helpText.WriteString("/preview <YYYY-MM-DD HH:MM> <frequency> <months=N|count=N>\n - Show the schedule an order placed at that time would get.\n\n")
			helpText.WriteString("/subscribe <TelegramID> <Name> <frequency> <months=N|count=N> [plan]\n - Create a subscription starting now.\n\n")
			helpText.WriteString("/deliveries <subscription_id>\n - List a subscription's deliveries.\n\n")
			helpText.WriteString("/pause <subscription_id>, /reactivate <subscription_id>\n - Pause or resume a subscription.\n\n")
			helpText.WriteString("/delivered <delivery_id>, /skip <delivery_id>\n - Close out a delivery.\n\n")
			helpText.WriteString("Frequencies: daily, weekly, monthly, customized. Orders after 6 PM start a day later; Sundays move to Monday.")
			return c.Send(helpText.String())
		}
		return c.Send("/my_deliveries - your upcoming deliveries, with a button to skip any of them.\n\nDeliveries start at 8 AM. Orders placed after 6 PM start the day after tomorrow, and we never deliver on Sundays.")
	})

	b.Handle("/my_deliveries", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/my_deliveries", "sender_id": senderID})

		subs, upcoming, err := svc.UpcomingForCustomer(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to load upcoming deliveries")
			return c.Send(userMessage(err))
		}
		if len(subs) == 0 {
			return c.Send("You have no active subscriptions.")
		}

		for _, sub := range subs {
			text, markup := upcomingMessage(sub, upcoming[sub.ID])
			if err := c.Send(text, markup); err != nil {
				logCtx.WithError(err).WithField("subscription_id", sub.ID).Error("Failed to send upcoming deliveries")
				return err
			}
		}
		return nil
	})
}

func upcomingMessage(sub *subscription.Subscription, deliveries []*subscription.Delivery) (string, *telebot.ReplyMarkup) {
	markup := &telebot.ReplyMarkup{}
	var text strings.Builder
	fmt.Fprintf(&text, "%s (%s): %d deliveries left\n", sub.PlanName, sub.Frequency, len(deliveries))
	if len(deliveries) == 0 {
		return text.String(), markup
	}

	rows := make([]telebot.Row, 0, upcomingPerMessage)
	for i, d := range deliveries {
		if i == upcomingPerMessage {
			break
		}
		fmt.Fprintf(&text, "%d. %s\n", d.SequenceIndex, d.DeliveryDate.Format(app.DateLayout))
		btn := markup.Data("Skip "+d.DeliveryDate.Format("Mon 02 Jan"), skipButtonUnique, strconv.FormatInt(d.ID, 10))
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)
	return text.String(), markup
}
