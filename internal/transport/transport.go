// Package transport defines the seam between the narrative engine and
// whatever chat surface delivers it: inbound user events, and the
// outbound sink the engine emits UI directives to. Gateways render
// choices as selectable affordances and map a selection back to a
// Choice event carrying the original label.
package transport

import (
	"context"

	"Naqqal/internal/story"
)

// EventKind discriminates inbound user events.
type EventKind int

const (
	EventStart EventKind = iota
	EventCancel
	EventText
	EventChoice
)

// Event is one inbound user action. For EventText the Text field is
// free text; for EventChoice it is the label of a previously offered
// choice.
type Event struct {
	Kind   EventKind
	UserID string
	Text   string
}

// Handler consumes inbound events. Implemented by the turn controller.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// FreshMessageTarget is an outbound surface that can only append new
// messages.
type FreshMessageTarget interface {
	SendText(userID, text string) error
	SendTextWithChoices(userID, text string, choices []story.Choice) error
}

// EditableTarget is an outbound surface that can also rewrite its last
// message and retract its choice affordances.
type EditableTarget interface {
	FreshMessageTarget
	EditLastMessage(userID, text string) error
	ClearChoices(userID string) error
}

// Sink is the full outbound surface the engine emits to. An
// EditableTarget satisfies it directly; a FreshMessageTarget is
// adapted with NewFreshSink. The caller picks the variant at wiring
// time.
type Sink = EditableTarget

// freshSink adapts a FreshMessageTarget to the full Sink: edits become
// new messages and clearing choices is a no-op, since nothing rendered
// can be taken back.
type freshSink struct {
	FreshMessageTarget
}

// NewFreshSink wraps a fresh-message-only target as a Sink.
func NewFreshSink(target FreshMessageTarget) Sink {
	return freshSink{target}
}

func (s freshSink) EditLastMessage(userID, text string) error {
	return s.SendText(userID, text)
}

func (s freshSink) ClearChoices(string) error {
	return nil
}
