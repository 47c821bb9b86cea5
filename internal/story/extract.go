package story

import (
	"regexp"
	"strings"
)

// optionMarker matches one bracket-delimited numbered option, e.g.
// "[1. Fight]". The label is everything after the dot up to the
// closing bracket.
var optionMarker = regexp.MustCompile(`\[(\d+)\.\s*([^\]]+)\]`)

// terminalPhrases mark a beat as the story's ending. Substring match
// against the post-strip narrative.
var terminalPhrases = []string{
	"THE END",
	"پایان داستان",
}

// Extract parses a raw backend completion into a NarrationResult.
//
// Markers of the form [n. label] are collected left to right and
// removed from the text. The backend is only asked, never forced, to
// emit well-formed markers: zero matches is a normal outcome and the
// text passes through untouched. More than three matches are all kept;
// the prompt contract, not this parser, bounds the count.
func Extract(raw string) NarrationResult {
	matches := optionMarker.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return NarrationResult{
			NarrativeText: raw,
			Terminal:      isTerminal(raw),
		}
	}

	choices := make([]Choice, 0, len(matches))
	for _, m := range matches {
		label := strings.TrimSpace(m[2])
		if label == "" {
			// An all-whitespace label would render as a blank button.
			continue
		}
		choices = append(choices, Choice{
			Label:   label,
			ShortID: m[1],
		})
	}

	narrative := strings.TrimSpace(optionMarker.ReplaceAllString(raw, ""))
	return NarrationResult{
		NarrativeText: narrative,
		Choices:       choices,
		Terminal:      isTerminal(narrative),
	}
}

func isTerminal(narrative string) bool {
	for _, phrase := range terminalPhrases {
		if strings.Contains(narrative, phrase) {
			return true
		}
	}
	return false
}
