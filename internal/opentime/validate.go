package opentime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalid = errors.New("invalid item")
	ErrDecode  = errors.New("decode opentime document")
)

// Validate reports the first missing or malformed required field of it.
func Validate(it Item) error {
	if strings.TrimSpace(it.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	switch b := it.Body.(type) {
	case *Goal, *Habit, *Project:
	case *Task:
		if !b.Status.Valid() {
			return fmt.Errorf("%w: task status %q", ErrInvalid, b.Status)
		}
	case *Reminder:
		if strings.TrimSpace(b.Time) == "" {
			return fmt.Errorf("%w: reminder time is required", ErrInvalid)
		}
	case *Event:
		if strings.TrimSpace(b.Start) == "" || strings.TrimSpace(b.End) == "" {
			return fmt.Errorf("%w: event start and end are required", ErrInvalid)
		}
	case *Appointment:
		if strings.TrimSpace(b.Start) == "" || strings.TrimSpace(b.End) == "" {
			return fmt.Errorf("%w: appointment start and end are required", ErrInvalid)
		}
	case nil:
		return fmt.Errorf("%w: item type is required", ErrInvalid)
	default:
		return fmt.Errorf("%w: unknown item body %T", ErrInvalid, b)
	}
	for i, s := range it.Steps {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("%w: step %d needs id and title", ErrInvalid, i)
		}
	}
	for i, l := range it.Links {
		if l.Kind != LinkURL && l.Kind != LinkRef {
			return fmt.Errorf("%w: link %d kind %q", ErrInvalid, i, l.Kind)
		}
	}
	return nil
}
