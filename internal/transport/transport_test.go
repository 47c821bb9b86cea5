package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"Naqqal/internal/story"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct {
	sent int
}

func (t *countingTarget) SendText(string, string) error {
	t.sent++
	return nil
}

func (t *countingTarget) SendTextWithChoices(string, string, []story.Choice) error {
	t.sent++
	return nil
}

func TestFreshSinkAdaptsEditsToNewMessages(t *testing.T) {
	target := &countingTarget{}
	sink := NewFreshSink(target)

	require.NoError(t, sink.EditLastMessage("u1", "rewritten"))
	assert.Equal(t, 1, target.sent)

	require.NoError(t, sink.ClearChoices("u1"))
	assert.Equal(t, 1, target.sent, "clearing choices emits nothing")
}

type capturingHandler struct {
	events []Event
}

func (h *capturingHandler) HandleEvent(_ context.Context, ev Event) {
	h.events = append(h.events, ev)
}

func TestConsoleMapsNumbersToOfferedChoices(t *testing.T) {
	input := strings.NewReader("/start\nRostam\n2\n/quit\n")
	var out bytes.Buffer
	console := NewConsole(input, &out)

	handler := &capturingHandler{}

	// Offer choices as the engine would, mid-run, by seeding them
	// before the numbered input is read.
	require.NoError(t, console.SendTextWithChoices("console", "The dust rises.", []story.Choice{
		{Label: "Fight"}, {Label: "Flee"},
	}))

	require.NoError(t, console.Run(context.Background(), handler))

	require.Len(t, handler.events, 3)
	assert.Equal(t, EventStart, handler.events[0].Kind)
	assert.Equal(t, EventText, handler.events[1].Kind)
	assert.Equal(t, "Rostam", handler.events[1].Text)
	assert.Equal(t, EventChoice, handler.events[2].Kind)
	assert.Equal(t, "Flee", handler.events[2].Text)
}

func TestConsoleTreatsOutOfRangeNumberAsText(t *testing.T) {
	input := strings.NewReader("7\n")
	var out bytes.Buffer
	console := NewConsole(input, &out)

	handler := &capturingHandler{}
	require.NoError(t, console.Run(context.Background(), handler))

	require.Len(t, handler.events, 1)
	assert.Equal(t, EventText, handler.events[0].Kind)
	assert.Equal(t, "7", handler.events[0].Text)
}
