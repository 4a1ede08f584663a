package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"OilSentinel/internal/model"
	"OilSentinel/internal/recorder"
)

// FormatTitle builds the chat title shown while the price holds,
// e.g. "Oil 📈 $76.28".
func FormatTitle(prefix string, price float64, trend model.Trend) string {
	return fmt.Sprintf("%s %s $%.2f", prefix, trend.Glyph(), price)
}

// FormatClock renders an observation time as "HH:MM UTC".
func FormatClock(t time.Time) string {
	return t.UTC().Format("15:04") + " UTC"
}

// FormatChangeMessage formats an accepted price change for the chat.
func FormatChangeMessage(evt *model.ChangeEvent) string {
	var b strings.Builder
	b.WriteString("🛢️ <b>Oil Price Updated</b>\n\n")
	if evt.Old != nil {
		b.WriteString(fmt.Sprintf("Old: $%.2f (cycle %d)\n", evt.Old.Price, evt.Old.Cycle))
	}
	b.WriteString(fmt.Sprintf("New: $%.2f (cycle %d)\n", evt.New.Price, evt.New.Cycle))
	b.WriteString(fmt.Sprintf("Change: %s (%s%%) %s\n",
		signedDollars(evt.Delta.Abs), signedNumber(evt.Delta.Percent), evt.Delta.Trend.Glyph()))
	b.WriteString(fmt.Sprintf("Observed: %s\n", FormatClock(observedOr(evt))))
	return b.String()
}

// FormatInitialMessage formats the first observation after a clean start.
// Only shown as a manual-check reply; the initial price is not announced.
func FormatInitialMessage(evt *model.ChangeEvent) string {
	return fmt.Sprintf("🛢️ <b>Initial oil price recorded</b>\n\n$%.2f (cycle %d), observed %s",
		evt.New.Price, evt.New.Cycle, FormatClock(observedOr(evt)))
}

// FormatCurrentPrice formats the stored price for the /price command.
func FormatCurrentPrice(rec *model.PriceRecord) string {
	if rec == nil {
		return "No price recorded yet. Try /check first."
	}
	return fmt.Sprintf("🛢️ <b>Current Oil Price</b>\n\n$%.2f (cycle %d)\nObserved: %s",
		rec.Price, rec.Cycle, FormatClock(rec.ObservedAt))
}

// FormatStatus formats the monitor state for the /status command.
func FormatStatus(endpoint string, interval time.Duration, state *model.PollState) string {
	var b strings.Builder
	b.WriteString("🤖 <b>OilSentinel Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Endpoint: %s\n", endpoint))
	b.WriteString(fmt.Sprintf("Poll interval: %s\n", interval))
	if state.LastRecord != nil {
		b.WriteString(fmt.Sprintf("Current price: $%.2f (cycle %d)\n", state.LastRecord.Price, state.LastRecord.Cycle))
	} else {
		b.WriteString("Current price: none yet\n")
	}
	if !state.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("State saved: %s\n", humanize.Time(state.UpdatedAt)))
	}
	return b.String()
}

// FormatHistory formats recent recorded events for the /history command.
func FormatHistory(events []recorder.StoredEvent) string {
	if len(events) == 0 {
		return "No price history recorded yet."
	}
	var b strings.Builder
	b.WriteString("📜 <b>Recent Price Events</b>\n\n")
	for _, e := range events {
		if e.Type == string(model.EventInitial) {
			b.WriteString(fmt.Sprintf("• cycle %d: $%.2f (initial, %s)\n",
				e.NewCycle, e.NewPrice, humanize.Time(e.Timestamp)))
			continue
		}
		b.WriteString(fmt.Sprintf("• cycle %d: $%.2f → $%.2f (%s, %s)\n",
			e.NewCycle, e.OldPrice, e.NewPrice, signedDollars(e.Abs), humanize.Time(e.Timestamp)))
	}
	return b.String()
}

// FormatHelp lists the available commands.
func FormatHelp(prefix string) string {
	return fmt.Sprintf("Available commands:\n"+
		"• %[1]scheck — check for a price update now\n"+
		"• %[1]sprice — show the current oil price\n"+
		"• %[1]sstatus — show monitor status\n"+
		"• %[1]shistory — show recent price events", prefix)
}

func observedOr(evt *model.ChangeEvent) time.Time {
	if !evt.New.ObservedAt.IsZero() {
		return evt.New.ObservedAt
	}
	return evt.DetectedAt
}

func signedDollars(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", math.Abs(v))
	}
	return fmt.Sprintf("+$%.2f", v)
}

func signedNumber(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}
