// Package broadcast sends the quarter-hour check-in prompt to every
// active subscriber.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/locales"
	"quarterlog-bot/internal/observability"
	"quarterlog-bot/internal/timeslot"
	"quarterlog-bot/pkg/smsapi"

	"github.com/getsentry/sentry-go"
	"go.uber.org/ratelimit"
)

// Report summarizes one broadcast pass.
type Report struct {
	Sent   int
	Failed int
}

// Broadcaster enumerates active subscribers and prompts each one for
// the slot that just closed. Sends are sequential and paced by a leaky
// bucket limiter; one recipient's failure never aborts the batch.
type Broadcaster struct {
	userRepo    database.UserRepository
	messenger   smsapi.Messenger
	ratelimiter ratelimit.Limiter
	debug       bool
}

// New creates a Broadcaster. ratePerSecond caps outbound sends to
// respect the SMS provider's rate limits.
func New(userRepo database.UserRepository, messenger smsapi.Messenger, ratePerSecond int, debug bool) (*Broadcaster, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository cannot be nil")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger cannot be nil")
	}
	if ratePerSecond < 1 {
		return nil, fmt.Errorf("send rate must be at least 1 per second, got %d", ratePerSecond)
	}
	return &Broadcaster{
		userRepo:    userRepo,
		messenger:   messenger,
		ratelimiter: ratelimit.New(ratePerSecond),
		debug:       debug,
	}, nil
}

// PromptText composes the check-in question for the window that closed
// at now: from the previous slot's boundary to the current one.
func PromptText(now time.Time) string {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	return locales.GetMessage(localizer, "MsgCheckInPrompt", map[string]interface{}{
		"From": timeslot.PreviousSlot(now).Label(),
		"To":   timeslot.SlotAt(now).Label(),
	})
}

// Run performs one broadcast pass at the given tick time and reports
// how many sends succeeded and failed. A store failure listing the
// subscribers is the only error that aborts the pass.
func (b *Broadcaster) Run(ctx context.Context, now time.Time) (Report, error) {
	users, err := b.userRepo.ListActive(ctx)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("broadcast aborted: %w", err))
		return Report{}, fmt.Errorf("failed to list active subscribers: %w", err)
	}

	prompt := PromptText(now)
	slot := timeslot.PreviousSlot(now)
	log.Printf("[Broadcast Slot:%s] Prompting %d active subscriber(s)", slot, len(users))

	var report Report
	for _, user := range users {
		b.ratelimiter.Take()

		sid, err := b.messenger.Send(ctx, user.Phone, prompt)
		if err != nil {
			// Isolate the failure and keep going with the rest of the batch.
			report.Failed++
			observability.RecordReminderFailed()
			log.Printf("[Broadcast Slot:%s To:%s] Send failed: %v", slot, user.Phone, err)
			sentry.CaptureException(fmt.Errorf("broadcast send to %s failed: %w", user.Phone, err))
			continue
		}

		report.Sent++
		observability.RecordReminderSent()
		if b.debug {
			log.Printf("[Broadcast Slot:%s To:%s] Sent (sid %s)", slot, user.Phone, sid)
		}
	}

	log.Printf("[Broadcast Slot:%s] Pass complete: %d sent, %d failed", slot, report.Sent, report.Failed)
	return report, nil
}
