package telegram

import (
	"context"
	"fmt"
	"strconv"

	"juice_subscription_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterCustomerResponseHandlers handles the inline "Skip" buttons of /my_deliveries.
func RegisterCustomerResponseHandlers(ctx context.Context, b *telebot.Bot, svc *app.SubscriptionService, baseLogger *logrus.Entry) {
	b.Handle(&telebot.Btn{Unique: skipButtonUnique}, func(c telebot.Context) error {
		data := c.Callback().Data
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "skip_callback",
			"sender_id": c.Sender().ID,
			"data":      data,
		})

		deliveryID, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			c.Bot().OnError(fmt.Errorf("invalid delivery ID %q in skip callback: %w", data, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Could not read that button."})
		}

		d, err := svc.SkipDeliveryForCustomer(ctx, c.Sender().ID, deliveryID)
		if err != nil {
			logCtx.WithError(err).Warn("Skip request rejected")
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err)})
		}

		logCtx.WithField("subscription_id", d.SubscriptionID).Info("Customer skipped a delivery")
		return c.Respond(&telebot.CallbackResponse{
			Text: fmt.Sprintf("Skipped delivery on %s.", d.DeliveryDate.Format(app.DateLayout)),
		})
	})
}
