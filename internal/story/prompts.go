package story

import "fmt"

// systemPrompt is redeclared on every turn so the backend cannot drift
// away from the option-format contract over a long story.
const systemPrompt = `You are the Naqqal, a master storyteller of the Shahnameh. The user has chosen a role inside the mythic world of ancient Persia, and you weave an epic, dynamic tale around their decisions.

Strict rules:
1. Your tone is epic and literary yet clear, in the manner of the Shahnameh.
2. The story takes place in the mythological world of Iran.
3. Every beat is one paragraph of narration followed by up to 3 options for the user, each on the same line, formatted exactly as [1. first option] [2. second option] [3. third option]. Emit no options in any other form.
4. Never leave your role as the Naqqal.
5. When the tale reaches its true end, close the final narration with the words THE END and offer no options.`

// SuggestedRoles are offered as starting choices when a story begins.
// Free-text roles are accepted just the same.
var SuggestedRoles = []Choice{
	{Label: "A young champion of Zabulistan", ShortID: "1"},
	{Label: "A wise priest at the Shah's court", ShortID: "2"},
	{Label: "A Turanian prince of divided heart", ShortID: "3"},
}

// BuildOpening constructs the two-turn opening sequence for a chosen
// role: the system instruction followed by a first-person prompt that
// asks the Naqqal to begin.
func BuildOpening(role string) []Turn {
	return []Turn{
		{Speaker: SpeakerSystem, Text: systemPrompt},
		{Speaker: SpeakerUser, Text: fmt.Sprintf("I take the role of '%s'. Begin my story.", role)},
	}
}

// BuildContinuation returns a new history with the user's input appended
// and the system turn at index 0 refreshed to the current instruction
// template. The input may be free text or a previously offered option's
// label; the two are indistinguishable here.
func BuildContinuation(history []Turn, userInput string) []Turn {
	out := make([]Turn, 0, len(history)+2)
	if len(history) == 0 || history[0].Speaker != SpeakerSystem {
		out = append(out, Turn{Speaker: SpeakerSystem, Text: systemPrompt})
		out = append(out, history...)
	} else {
		out = append(out, Turn{Speaker: SpeakerSystem, Text: systemPrompt})
		out = append(out, history[1:]...)
	}
	out = append(out, Turn{Speaker: SpeakerUser, Text: userInput})
	return out
}
