package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"Naqqal/internal/story"
)

const consoleUserID = "console"

// Console is an interactive terminal gateway for a single local user.
// It is a FreshMessageTarget: every emission is a new block of output.
type Console struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	choices []story.Choice
}

// NewConsole creates a console gateway reading from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// SendText prints a plain narrator message.
func (c *Console) SendText(_ string, text string) error {
	c.mu.Lock()
	c.choices = nil
	c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "\n%s\n", text)
	return err
}

// SendTextWithChoices prints the narrative followed by a numbered
// option list; entering the number selects the option.
func (c *Console) SendTextWithChoices(_ string, text string, choices []story.Choice) error {
	c.mu.Lock()
	c.choices = choices
	c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "\n%s\n", text); err != nil {
		return err
	}
	for i, ch := range choices {
		if _, err := fmt.Fprintf(c.out, "  %d) %s\n", i+1, ch.Label); err != nil {
			return err
		}
	}
	return nil
}

// Run reads lines until EOF or /quit, dispatching each as an event.
// Turns are processed inline, so input naturally queues behind the
// in-flight one.
func (c *Console) Run(ctx context.Context, handler Handler) error {
	fmt.Fprintln(c.out, "=== Naqqal ===")
	fmt.Fprintln(c.out, "Type /start to begin a story, /cancel to abandon it, /quit to exit.")

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "/exit":
			return scanner.Err()
		case "/start":
			handler.HandleEvent(ctx, Event{Kind: EventStart, UserID: consoleUserID})
			continue
		case "/cancel":
			handler.HandleEvent(ctx, Event{Kind: EventCancel, UserID: consoleUserID})
			continue
		}

		if label, ok := c.selectChoice(input); ok {
			handler.HandleEvent(ctx, Event{Kind: EventChoice, UserID: consoleUserID, Text: label})
			continue
		}

		handler.HandleEvent(ctx, Event{Kind: EventText, UserID: consoleUserID, Text: input})
	}

	return scanner.Err()
}

// selectChoice maps a bare number to the label of the most recently
// offered option list.
func (c *Console) selectChoice(input string) (string, bool) {
	n, err := strconv.Atoi(input)
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > len(c.choices) {
		return "", false
	}
	return c.choices[n-1].Label, true
}
