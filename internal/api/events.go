package api

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/terra-clan/certificate-studio/internal/sessions"
)

// Event types accepted on /state/{event} and the live channel
const (
	EventLanguage = "language"
	EventCourse   = "course"
	EventLevel    = "level"
	EventName     = "name"
	EventDate     = "date"
	EventStamp    = "stamp"
	EventDismiss  = "dismiss"
)

const maxNameLength = 200

// Event is one user action. Value is a JSON string, or a boolean for stamp.
type Event struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Validate checks the event shape before it reaches the controller
func (e Event) Validate() error {
	if err := validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required,
			validation.In(EventLanguage, EventCourse, EventLevel, EventName, EventDate, EventStamp, EventDismiss)),
		validation.Field(&e.Value, validation.When(e.Type != EventDismiss, validation.Required)),
	); err != nil {
		return err
	}

	if e.Type == EventDismiss {
		return nil
	}
	if e.Type == EventStamp {
		_, err := e.boolValue()
		return err
	}

	s, err := e.stringValue()
	if err != nil {
		return err
	}
	switch e.Type {
	case EventLanguage:
		return validation.Errors{"value": validation.Validate(s, validation.Required)}.Filter()
	case EventName:
		return validation.Errors{"value": validation.Validate(s, validation.RuneLength(0, maxNameLength))}.Filter()
	}
	return nil
}

func (e Event) stringValue() (string, error) {
	var s string
	if err := json.Unmarshal(e.Value, &s); err != nil {
		return "", validation.Errors{"value": validation.NewError("validation_is_string", "must be a string")}
	}
	return s, nil
}

func (e Event) boolValue() (bool, error) {
	var b bool
	if err := json.Unmarshal(e.Value, &b); err != nil {
		return false, validation.Errors{"value": validation.NewError("validation_is_bool", "must be a boolean")}
	}
	return b, nil
}

// apply validates ev and forwards it to the session controller
func apply(ctx context.Context, sess *sessions.Session, ev Event) error {
	if err := ev.Validate(); err != nil {
		return &validationError{err: err}
	}

	ctrl := sess.Controller
	if ev.Type == EventDismiss {
		ctrl.DismissMessage()
		return nil
	}
	if ev.Type == EventStamp {
		on, _ := ev.boolValue()
		return ctrl.SetStamp(ctx, on)
	}

	v, _ := ev.stringValue()
	switch ev.Type {
	case EventLanguage:
		return ctrl.SwitchLanguage(ctx, v)
	case EventCourse:
		return ctrl.SelectCourse(ctx, v)
	case EventLevel:
		return ctrl.SelectLevel(ctx, v)
	case EventName:
		return ctrl.SetName(ctx, v)
	case EventDate:
		return ctrl.SetDate(ctx, v)
	}
	return fmt.Errorf("unhandled event type %q", ev.Type)
}

// validationError marks request-shape failures
type validationError struct {
	err error
}

func (e *validationError) Error() string { return e.err.Error() }
func (e *validationError) Unwrap() error { return e.err }
