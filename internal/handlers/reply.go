package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/database/models"
	"quarterlog-bot/internal/locales"
	"quarterlog-bot/internal/observability"
	"quarterlog-bot/internal/timeslot"

	"github.com/getsentry/sentry-go"
)

// HandleInbound correlates one inbound reply with the slot it answers
// and stores it. The reply is attributed to the most recently closed
// slot relative to the arrival time; a user who skipped several prompts
// and then answered once still only fills that one slot. Unknown
// senders are registered on the spot.
//
// On success a confirmation SMS echoing the stored text and slot label
// is sent to the sender. If the ledger write fails, no confirmation is
// sent and the error is returned for the boundary to report.
func (h *Handler) HandleInbound(ctx context.Context, from, text string, at time.Time) (*models.ActivityEntry, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyReply
	}

	slot := timeslot.PreviousSlot(at)
	date := timeslot.DateOf(at)
	logPrefix := fmt.Sprintf("[Inbound From:%s Slot:%s]", from, slot)

	user, err := h.userRepo.FindByPhone(ctx, from)
	if errors.Is(err, database.ErrUserNotFound) {
		// Auto-onboarding: there is no invite gate, the first reply
		// from an unknown number registers it.
		user, err = h.userRepo.Register(ctx, from)
		if err == nil {
			observability.RecordRegistration()
			log.Printf("%s Auto-registered new subscriber", logPrefix)
		}
	}
	if err != nil {
		observability.RecordReplyFailed()
		sentry.CaptureException(fmt.Errorf("%s resolve sender: %w", logPrefix, err))
		return nil, fmt.Errorf("failed to resolve sender %s: %w", from, err)
	}

	entry, err := h.activityRepo.Upsert(ctx, user.ID, date, slot.String(), trimmed)
	if err != nil {
		observability.RecordReplyFailed()
		log.Printf("%s Ledger write failed: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s ledger write: %w", logPrefix, err))
		return nil, fmt.Errorf("failed to store activity: %w", err)
	}

	observability.RecordReplyProcessed()
	if h.debug {
		log.Printf("%s Stored %q for %s", logPrefix, entry.Text, date)
	}

	confirmation := locales.GetMessage(h.localizer(), "MsgLoggedConfirmation", map[string]interface{}{
		"Text": entry.Text,
		"Slot": slot.Label(),
	})
	if _, err := h.messenger.Send(ctx, from, confirmation); err != nil {
		log.Printf("%s Confirmation send failed: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s confirmation send: %w", logPrefix, err))
		// The entry is stored; the webhook is retried by the provider
		// and the upsert absorbs the repeat, so surfacing is safe.
		return entry, fmt.Errorf("failed to send confirmation: %w", err)
	}

	return entry, nil
}

// HandleOptOut flips the sender inactive and confirms the opt-out.
// An unknown sender is a no-op; anything they text later still
// registers them.
func (h *Handler) HandleOptOut(ctx context.Context, from string) error {
	logPrefix := fmt.Sprintf("[OptOut From:%s]", from)

	err := h.userRepo.Deactivate(ctx, from)
	if errors.Is(err, database.ErrUserNotFound) {
		log.Printf("%s Unknown sender, nothing to deactivate", logPrefix)
		return nil
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("%s deactivate: %w", logPrefix, err))
		return fmt.Errorf("failed to deactivate %s: %w", from, err)
	}

	log.Printf("%s Subscriber deactivated", logPrefix)

	confirmation := locales.GetMessage(h.localizer(), "MsgOptOutConfirmation", nil)
	if _, err := h.messenger.Send(ctx, from, confirmation); err != nil {
		log.Printf("%s Confirmation send failed: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s confirmation send: %w", logPrefix, err))
		return fmt.Errorf("failed to send opt-out confirmation: %w", err)
	}
	return nil
}

// isOptOut reports whether an inbound body is the STOP keyword.
func isOptOut(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "STOP")
}
