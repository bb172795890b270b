package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/locales"
	"quarterlog-bot/internal/observability"
	"quarterlog-bot/internal/timeslot"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes wires the webhook and API endpoints to the fiber app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Post("/webhook/sms", h.HandleSMSWebhook)
	app.Post("/api/register", h.HandleRegister)
	app.Post("/api/activities", h.HandleLogActivity)
	app.Get("/api/activities", h.HandleListActivities)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
}

// HandleSMSWebhook receives Twilio's inbound SMS callback.
// Twilio posts x-www-form-urlencoded fields like:
// From=+15551234567  Body=wrote code  MessageSid=SM...
// The response is TwiML; an empty <Response/> acknowledges without
// sending anything, since confirmations go out as ordinary messages.
func (h *Handler) HandleSMSWebhook(c *fiber.Ctx) error {
	from := normalizeInboundPhone(c.FormValue("From"))
	body := c.FormValue("Body")

	if from == "" {
		return writeTwiML(c, locales.GetMessage(h.localizer(), "MsgErrorGeneral", nil))
	}

	if isOptOut(body) {
		if err := h.HandleOptOut(c.Context(), from); err != nil {
			return genericError(c, err)
		}
		return writeTwiMLAck(c)
	}

	_, err := h.HandleInbound(c.Context(), from, body, time.Now())
	if errors.Is(err, ErrEmptyReply) {
		return writeTwiML(c, locales.GetMessage(h.localizer(), "MsgEmptyReply", nil))
	}
	if err != nil {
		return genericError(c, err)
	}

	return writeTwiMLAck(c)
}

type registerRequest struct {
	Phone string `json:"phone"`
}

// HandleRegister subscribes a phone number to check-ins and returns the
// user row. Registering an existing number re-activates it.
func (h *Handler) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse body")
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	user, err := h.userRepo.Register(c.Context(), phone)
	if err != nil {
		return genericError(c, err)
	}

	observability.RecordRegistration()
	log.Printf("[Register Phone:%s] Subscriber registered", phone)
	return c.JSON(user)
}

type logActivityRequest struct {
	Phone string `json:"phone"`
	Date  string `json:"date,omitempty"`
	Slot  string `json:"slot,omitempty"`
	Text  string `json:"text"`
}

// HandleLogActivity is the direct-logging path. It shares the upsert
// contract with the reply path, so logging the same slot twice replaces
// the earlier text. Unlike the webhook it does not auto-register:
// unknown phone numbers get a 404.
func (h *Handler) HandleLogActivity(c *fiber.Ctx) error {
	var req logActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse body")
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	now := time.Now()
	date := req.Date
	if date == "" {
		date = timeslot.DateOf(now)
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	slot := req.Slot
	if slot == "" {
		slot = timeslot.PreviousSlot(now).String()
	} else if !validSlot(slot) {
		return fiber.NewError(fiber.StatusBadRequest, "slot must be HH:MM on a 15-minute boundary")
	}

	user, err := h.userRepo.FindByPhone(c.Context(), phone)
	if errors.Is(err, database.ErrUserNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	if err != nil {
		return genericError(c, err)
	}

	entry, err := h.activityRepo.Upsert(c.Context(), user.ID, date, slot, text)
	if err != nil {
		return genericError(c, err)
	}
	return c.JSON(entry)
}

// HandleListActivities returns one user's entries for a calendar date,
// slots ascending. The date defaults to today.
func (h *Handler) HandleListActivities(c *fiber.Ctx) error {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	date := c.Query("date")
	if date == "" {
		date = timeslot.DateOf(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	user, err := h.userRepo.FindByPhone(c.Context(), phone)
	if errors.Is(err, database.ErrUserNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	if err != nil {
		return genericError(c, err)
	}

	entries, err := h.activityRepo.ListForUserAndDate(c.Context(), user.ID, date)
	if err != nil {
		return genericError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "entries": entries})
}

// genericError reports the failure and answers a generic 500 body so
// internals never leak to the caller.
func genericError(c *fiber.Ctx, err error) error {
	log.Printf("[HTTP %s] Request failed: %v", c.Path(), err)
	sentry.CaptureException(fmt.Errorf("%s: %w", c.Path(), err))
	return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
}

// normalizeInboundPhone strips the channel prefix Twilio adds for
// non-SMS channels and surrounding whitespace.
func normalizeInboundPhone(from string) string {
	from = strings.TrimSpace(from)
	from = strings.TrimPrefix(from, "whatsapp:")
	return strings.TrimSpace(from)
}

// validSlot reports whether s is a zero-padded "HH:MM" on a
// quarter-hour boundary. time.Parse alone also accepts "9:00", which
// would store a second ledger key for the same wall-clock slot as the
// reply path's "09:00", so the canonical rendering is required too.
func validSlot(s string) bool {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return false
	}
	if t.Minute()%timeslot.SlotMinutes != 0 {
		return false
	}
	canonical := timeslot.Slot{Hour: t.Hour(), Minute: t.Minute()}
	return s == canonical.String()
}

// writeTwiML answers the webhook with a single TwiML <Message>.
func writeTwiML(c *fiber.Ctx, msg string) error {
	c.Set("Content-Type", "application/xml")
	return c.Status(fiber.StatusOK).SendString(
		`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
			`<Response><Message>` + escapeXML(msg) + `</Message></Response>`)
}

// writeTwiMLAck answers the webhook with an empty TwiML document: a
// plain acknowledgment with no reply message.
func writeTwiMLAck(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/xml")
	return c.Status(fiber.StatusOK).SendString(
		`<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<Response></Response>`)
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
		`'`, "&apos;",
	)
	return replacer.Replace(s)
}
