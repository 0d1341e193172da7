package main

import (
	"context"
	"time"

	"lendbook/internal/notifications"
)

// sendPaymentRemindersDaily pushes a due-installments reminder to every
// organization's staff devices once a day.
func (app *application) sendPaymentRemindersDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		app.sendPaymentReminders()

		for range ticker.C {
			app.sendPaymentReminders()
		}
	}()
}

func (app *application) sendPaymentReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	orgIDs, err := app.store.Organizations.ListIDs(ctx)
	if err != nil {
		app.logger.Errorf("Error listing organizations for reminders: %v", err)
		return
	}

	now := time.Now()
	for _, orgID := range orgIDs {
		due, err := app.store.Loans.DueInstallments(ctx, orgID, now)
		if err != nil {
			app.logger.Errorf("Error listing due installments for org %d: %v", orgID, err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		tokens, err := app.store.PushTokens.ListByOrganization(ctx, orgID)
		if err != nil {
			app.logger.Errorf("Error listing push tokens for org %d: %v", orgID, err)
			continue
		}

		if err := notifications.SendPaymentReminders(ctx, app.push, tokens, due); err != nil {
			app.logger.Errorf("Error sending payment reminders for org %d: %v", orgID, err)
			continue
		}
		app.logger.Infof("Sent payment reminders for org %d (%d installments due)", orgID, len(due))
	}
}
