package telegram

import (
	"context"
	"fmt"
	"time"

	"juice_subscription_bot/internal/app"
	"juice_subscription_bot/internal/domain/subscription"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notAuthorizedText = "You are not allowed to use this command."

// RegisterAdminHandlers registers the operator commands. Only adminTelegramID may use them.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	svc *app.SubscriptionService,
	adminTelegramID int64,
	loc *time.Location,
	baseLogger *logrus.Entry,
) {
	adminOnly := func(command string, handler func(c telebot.Context, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(notAuthorizedText)
			}
			return handler(c, handlerLogger)
		})
	}

	adminOnly("/preview", func(c telebot.Context, log *logrus.Entry) error {
		req, err := parsePreviewArgs(c.Args(), loc)
		if err != nil {
			log.WithError(err).Warn("Invalid preview arguments")
			return c.Send(argumentError(err))
		}
		dates, err := svc.PreviewSchedule(ctx, req)
		if err != nil {
			log.WithError(err).Warn("Preview rejected")
			return c.Send(userMessage(err))
		}
		log.WithField("deliveries", len(dates)).Info("Schedule preview computed")
		return c.Send(formatSchedule(req, dates))
	})

	adminOnly("/subscribe", func(c telebot.Context, log *logrus.Entry) error {
		in, err := parseSubscribeArgs(c.Args())
		if err != nil {
			log.WithError(err).Warn("Invalid subscribe arguments")
			return c.Send(argumentError(err))
		}
		log = log.WithFields(logrus.Fields{
			"customer_telegram_id": in.CustomerTelegramID,
			"frequency":            in.Frequency,
		})

		sub, deliveries, err := svc.CreateSubscription(ctx, in)
		if err != nil {
			log.WithError(err).Error("Failed to create subscription")
			return c.Send(userMessage(err))
		}
		log.WithField("subscription_id", sub.ID).Info("Subscription created by admin")
		return c.Send(formatDeliveries(sub, deliveries))
	})

	adminOnly("/deliveries", func(c telebot.Context, log *logrus.Entry) error {
		id, err := parseID(c.Args(), "usage: /deliveries <subscription_id>")
		if err != nil {
			return c.Send(argumentError(err))
		}
		sub, deliveries, err := svc.ListDeliveries(ctx, id)
		if err != nil {
			log.WithError(err).WithField("subscription_id", id).Warn("Failed to list deliveries")
			return c.Send(userMessage(err))
		}
		return c.Send(formatDeliveries(sub, deliveries))
	})

	adminOnly("/pause", func(c telebot.Context, log *logrus.Entry) error {
		id, err := parseID(c.Args(), "usage: /pause <subscription_id>")
		if err != nil {
			return c.Send(argumentError(err))
		}
		sub, err := svc.PauseSubscription(ctx, id)
		if err != nil {
			log.WithError(err).WithField("subscription_id", id).Warn("Failed to pause subscription")
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Subscription #%d for %s is paused. Pending deliveries were cancelled.", sub.ID, sub.CustomerName))
	})

	adminOnly("/reactivate", func(c telebot.Context, log *logrus.Entry) error {
		id, err := parseID(c.Args(), "usage: /reactivate <subscription_id>")
		if err != nil {
			return c.Send(argumentError(err))
		}
		sub, deliveries, err := svc.ReactivateSubscription(ctx, id)
		if err != nil {
			log.WithError(err).WithField("subscription_id", id).Warn("Failed to reactivate subscription")
			return c.Send(userMessage(err))
		}
		return c.Send(formatDeliveries(sub, deliveries))
	})

	closeHandler := func(usage string, closeFn func(context.Context, int64) (*subscription.Delivery, error)) func(telebot.Context, *logrus.Entry) error {
		return func(c telebot.Context, log *logrus.Entry) error {
			id, err := parseID(c.Args(), usage)
			if err != nil {
				return c.Send(argumentError(err))
			}
			res, err := closeFn(ctx, id)
			if err != nil {
				log.WithError(err).WithField("delivery_id", id).Warn("Failed to close delivery")
				return c.Send(userMessage(err))
			}
			return c.Send(fmt.Sprintf("Delivery #%d of subscription #%d is now %s.", res.ID, res.SubscriptionID, res.Status))
		}
	}
	adminOnly("/delivered", closeHandler("usage: /delivered <delivery_id>", svc.MarkDelivered))
	adminOnly("/skip", closeHandler("usage: /skip <delivery_id>", svc.SkipDelivery))
}
