// Package handlers correlates inbound SMS replies with check-in slots
// and exposes the HTTP boundary: the Twilio webhook plus a small JSON
// API for registration and direct activity logging.
package handlers

import (
	"errors"
	"fmt"

	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/locales"
	"quarterlog-bot/pkg/smsapi"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// ErrEmptyReply is returned when an inbound message has no text left
// after trimming. Surfaced immediately, never stored.
var ErrEmptyReply = errors.New("reply text is empty")

// Handler processes inbound replies and serves the HTTP API.
type Handler struct {
	userRepo     database.UserRepository
	activityRepo database.ActivityRepository
	messenger    smsapi.Messenger
	debug        bool
}

// NewHandler creates a Handler from its dependencies.
// Returns an error if any dependency is missing.
func NewHandler(
	userRepo database.UserRepository,
	activityRepo database.ActivityRepository,
	messenger smsapi.Messenger,
	debug bool,
) (*Handler, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository cannot be nil")
	}
	if activityRepo == nil {
		return nil, fmt.Errorf("activity repository cannot be nil")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger cannot be nil")
	}
	return &Handler{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		messenger:    messenger,
		debug:        debug,
	}, nil
}

// localizer returns the localizer for outbound SMS copy. Phone numbers
// carry no language hint, so everything uses the configured default.
func (h *Handler) localizer() *i18n.Localizer {
	return locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
}
