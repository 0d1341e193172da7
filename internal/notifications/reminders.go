package notifications

import (
	"context"
	"fmt"

	"lendbook/internal/store"

	"github.com/9ssi7/exponent"
)

// SendPaymentReminders notifies every staff device of the organization about
// installments that are due or overdue. Tokens and due rows are already
// tenant-scoped by the caller.
func SendPaymentReminders(ctx context.Context, push PushSender, tokens []string, due []store.DueInstallment) error {
	if len(tokens) == 0 || len(due) == 0 {
		return nil
	}

	title := "Payments due"
	body := fmt.Sprintf("%d installment(s) due or overdue", len(due))
	if len(due) == 1 {
		body = fmt.Sprintf("%s: installment #%d of loan %s is due",
			due[0].CustomerName, due[0].Sequence, due[0].LoanReference)
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":   "payment_reminder",
				"screen": "collections-screen",
			},
		})
	}

	_, err := push.Publish(ctx, msgs)
	return err
}
