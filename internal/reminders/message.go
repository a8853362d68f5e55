package reminders

import (
	"fmt"
	"strconv"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/krodit/krodit-server/internal/domain"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a decimal amount with its currency symbol.
// Unknown currency codes fall back to "<amount> <code>".
func FormatAmount(amount, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount + " " + code
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return amount + " " + code
	}
	return amountPrinter.Sprint(currency.NarrowSymbol(unit.Amount(value)))
}

// Title builds the notification title for a reminder.
func (r Reminder) Title() string {
	if r.Type == domain.ReminderToday {
		return fmt.Sprintf("%s renews today", r.Subscription.Name)
	}
	return fmt.Sprintf("%s renews tomorrow", r.Subscription.Name)
}

// Body builds the notification body for a reminder.
func (r Reminder) Body() string {
	amount := FormatAmount(r.Subscription.Amount, r.Subscription.Currency)
	when := "tomorrow"
	if r.Type == domain.ReminderToday {
		when = "today"
	}
	return fmt.Sprintf("%s will be charged %s.", amount, when)
}
