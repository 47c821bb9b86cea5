// Package engine drives the turn state machine: it owns the only code
// path that mutates sessions, calls the narration backend, and emits
// UI directives.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"Naqqal/internal/backend"
	"Naqqal/internal/session"
	"Naqqal/internal/story"
	"Naqqal/internal/transport"

	"go.opentelemetry.io/otel/trace"
)

// User-facing messages. The engine speaks in the narrator's voice even
// when it is only plumbing.
const (
	msgWelcome         = "In the name of the Lord of soul and wisdom.\n\nSeeker of the path, welcome. You stand at the threshold of your own tale within the Shahnameh.\n\nFirst, choose your role:"
	msgWeaving         = "Your role is chosen. The Naqqal is weaving the warp and weft of your tale. Be patient..."
	msgFarewell        = "Farewell, seeker. May your path be bright."
	msgRestartRequired = "No tale is in progress. Send /start to begin."
	msgTaleTold        = "The tale is told. Send /start to begin anew."
	msgChoosePath      = "Choose your path:"
	msgAuthFailure     = "The gates of the court are barred: the storyteller's credentials were refused. The tale is lost. Send /start to begin anew."
	msgGenericFailure  = "The Naqqal stumbled in his telling and the thread of the tale is lost. Send /start to begin anew."
)

// Narrator is the single request/response exchange with the generation
// backend.
type Narrator interface {
	Generate(ctx context.Context, history []story.Turn, onDelta func(partial string)) (string, error)
}

// Recorder receives completed histories for archival.
type Recorder interface {
	RecordHistory(userID string, history []story.Turn) error
}

// Config wires a Controller. Recorder may be nil; Progressive turns
// streamed partial text into in-place message edits.
type Config struct {
	Store       *session.Store
	Narrator    Narrator
	Sink        transport.Sink
	Recorder    Recorder
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Progressive bool
}

// Controller is the turn state machine.
type Controller struct {
	store       *session.Store
	narrator    Narrator
	sink        transport.Sink
	recorder    Recorder
	logger      *slog.Logger
	tracer      trace.Tracer
	progressive bool
}

// New creates a Controller from cfg.
func New(cfg Config) *Controller {
	return &Controller{
		store:       cfg.Store,
		narrator:    cfg.Narrator,
		sink:        cfg.Sink,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		tracer:      cfg.Tracer,
		progressive: cfg.Progressive,
	}
}

// HandleEvent processes one inbound event. Events for the same user
// are serialized on the store's per-user lock for the full turn,
// including the backend call; distinct users proceed in parallel.
func (c *Controller) HandleEvent(ctx context.Context, ev transport.Event) {
	unlock := c.store.Lock(ev.UserID)
	defer unlock()

	switch ev.Kind {
	case transport.EventStart:
		c.handleStart(ev.UserID)
	case transport.EventCancel:
		c.handleCancel(ev.UserID)
	case transport.EventText, transport.EventChoice:
		c.handleInput(ctx, ev.UserID, ev.Text)
	}
}

// handleStart creates a fresh session, discarding any prior one, and
// asks for a role with the suggested starting roles as choices.
func (c *Controller) handleStart(userID string) {
	c.store.Create(userID)
	c.logger.Info("story started", "user", userID)
	c.emitErr(userID, c.sink.SendTextWithChoices(userID, msgWelcome, story.SuggestedRoles))
}

func (c *Controller) handleCancel(userID string) {
	if _, ok := c.store.Get(userID); !ok {
		c.emitErr(userID, c.sink.SendText(userID, msgRestartRequired))
		return
	}
	c.store.Delete(userID)
	c.logger.Info("story cancelled", "user", userID)
	c.emitErr(userID, c.sink.SendText(userID, msgFarewell))
}

func (c *Controller) handleInput(ctx context.Context, userID, text string) {
	sess, ok := c.store.Get(userID)
	if !ok {
		c.emitErr(userID, c.sink.SendText(userID, msgRestartRequired))
		return
	}

	switch sess.Phase {
	case story.PhaseAwaitingRole:
		c.runTurn(ctx, sess, story.BuildOpening(text), func() { sess.Role = text })
	case story.PhaseInStory:
		c.emitErr(userID, c.sink.ClearChoices(userID))
		c.runTurn(ctx, sess, story.BuildContinuation(sess.History, text), nil)
	case story.PhaseTerminated:
		c.emitErr(userID, c.sink.SendText(userID, msgTaleTold))
	}
}

// runTurn performs one generation round trip: progress notice, backend
// call, choice extraction, history append, final emission. onSuccess
// runs just before the session is updated (the role is set exactly
// once, only when the opening turn succeeds).
func (c *Controller) runTurn(ctx context.Context, sess *story.Session, prompt []story.Turn, onSuccess func()) {
	ctx, span := c.tracer.Start(ctx, "story_turn")
	defer span.End()

	userID := sess.UserID
	c.emitErr(userID, c.sink.SendText(userID, msgWeaving))

	var onDelta func(string)
	if c.progressive {
		onDelta = func(partial string) {
			c.emitErr(userID, c.sink.EditLastMessage(userID, partial))
		}
	}

	completion, err := c.narrator.Generate(ctx, prompt, onDelta)
	if err != nil {
		c.failTurn(userID, err)
		return
	}

	if onSuccess != nil {
		onSuccess()
	}

	// The raw completion, markers included, becomes the assistant turn
	// so the backend keeps seeing its own option format in context.
	sess.History = append(prompt, story.Turn{Speaker: story.SpeakerAssistant, Text: completion})

	res := story.Extract(completion)
	if res.Terminal {
		sess.Phase = story.PhaseTerminated
		c.emitErr(userID, c.sink.EditLastMessage(userID, res.NarrativeText))
		c.emitErr(userID, c.sink.ClearChoices(userID))
		c.emitErr(userID, c.sink.SendText(userID, msgTaleTold))
	} else {
		sess.Phase = story.PhaseInStory
		// The clean narrative replaces the progress notice (or the
		// streamed raw text) in place; only then are choices offered.
		c.emitErr(userID, c.sink.EditLastMessage(userID, res.NarrativeText))
		if len(res.Choices) > 0 {
			c.emitErr(userID, c.sink.SendTextWithChoices(userID, msgChoosePath, res.Choices))
		}
		// Zero parsed options is a degraded beat, not an error.
	}

	c.logger.Info("turn completed",
		"user", userID,
		"phase", sess.Phase,
		"choices", len(res.Choices),
		"terminal", res.Terminal)

	if c.recorder != nil {
		snapshot := make([]story.Turn, len(sess.History))
		copy(snapshot, sess.History)
		go func() {
			if err := c.recorder.RecordHistory(userID, snapshot); err != nil {
				c.logger.Error("failed to archive transcript", "user", userID, "error", err)
			}
		}()
	}
}

// failTurn converts a backend failure into one terminal user-facing
// emission and discards the session. Nothing is retried.
func (c *Controller) failTurn(userID string, err error) {
	c.logger.Error("narration failed", "user", userID, "error", err)

	msg := msgGenericFailure
	if errors.Is(err, backend.ErrAuthentication) {
		msg = msgAuthFailure
	}

	c.store.Delete(userID)
	c.emitErr(userID, c.sink.SendText(userID, msg))
}

// emitErr logs a failed outbound emission; delivery problems never
// affect the session.
func (c *Controller) emitErr(userID string, err error) {
	if err != nil {
		c.logger.Warn("failed to emit to transport", "user", userID, "error", err)
	}
}
