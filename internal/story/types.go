package story

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerSystem    Speaker = "system"
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn represents a single message unit in a session's history.
// Turns are immutable once appended.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Phase is the state-machine state of a session.
type Phase string

const (
	PhaseAwaitingRole Phase = "awaiting_role"
	PhaseInStory      Phase = "in_story"
	PhaseTerminated   Phase = "terminated"
)

// Session holds the per-user state of an in-progress story.
// A session is mutated only by the turn controller, under the
// store's per-session lock.
type Session struct {
	UserID  string `json:"user_id"`
	Phase   Phase  `json:"phase"`
	Role    string `json:"role,omitempty"`
	History []Turn `json:"history"`
}

// Choice is one of up to three next-step options offered to the user.
type Choice struct {
	Label   string `json:"label"`
	ShortID string `json:"short_id,omitempty"`
}

// NarrationResult is the structured form of one backend completion:
// the narrative with option markers stripped, the options in encounter
// order, and whether the beat ends the story.
type NarrationResult struct {
	NarrativeText string   `json:"narrative_text"`
	Choices       []Choice `json:"choices"`
	Terminal      bool     `json:"terminal"`
}
