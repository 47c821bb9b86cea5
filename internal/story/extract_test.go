package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractThreeOptions(t *testing.T) {
	res := Extract("The dust rises. [1. Fight] [2. Flee] [3. Negotiate]")

	assert.Equal(t, "The dust rises.", res.NarrativeText)
	require.Len(t, res.Choices, 3)
	assert.Equal(t, Choice{Label: "Fight", ShortID: "1"}, res.Choices[0])
	assert.Equal(t, Choice{Label: "Flee", ShortID: "2"}, res.Choices[1])
	assert.Equal(t, Choice{Label: "Negotiate", ShortID: "3"}, res.Choices[2])
	assert.False(t, res.Terminal)
}

func TestExtractPreservesEncounterOrder(t *testing.T) {
	res := Extract("[3. Third] some text [1. First]")

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "Third", res.Choices[0].Label)
	assert.Equal(t, "First", res.Choices[1].Label)
	assert.Equal(t, "some text", res.NarrativeText)
}

func TestExtractZeroMatchesPassesTextThroughUnchanged(t *testing.T) {
	raw := "  A tale with no options, oddly spaced.  "
	res := Extract(raw)

	assert.Equal(t, raw, res.NarrativeText)
	assert.Empty(t, res.Choices)
}

func TestExtractKeepsAllMatchesBeyondThree(t *testing.T) {
	res := Extract("Go. [1. a] [2. b] [3. c] [4. d] [5. e]")

	assert.Len(t, res.Choices, 5)
	assert.Equal(t, "Go.", res.NarrativeText)
}

func TestExtractTrimsLabels(t *testing.T) {
	res := Extract("[1.   Ride east   ]")

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "Ride east", res.Choices[0].Label)
}

func TestExtractIdempotent(t *testing.T) {
	first := Extract("Night falls on Zabulistan. [1. Sleep] [2. Keep watch]")
	second := Extract(first.NarrativeText)

	assert.Empty(t, second.Choices)
	assert.Equal(t, first.NarrativeText, second.NarrativeText)
}

func TestExtractTerminalPhrase(t *testing.T) {
	res := Extract("And so the champion rested at last. THE END")

	assert.True(t, res.Terminal)
	assert.Empty(t, res.Choices)
}

func TestExtractTerminalPhrasePersian(t *testing.T) {
	res := Extract("چنین بود سرنوشت او. پایان داستان")

	assert.True(t, res.Terminal)
}

func TestExtractTerminalWithStrayChoices(t *testing.T) {
	res := Extract("THE END [1. Restart]")

	assert.True(t, res.Terminal)
	assert.Len(t, res.Choices, 1)
}

func TestExtractSkipsWhitespaceOnlyLabels(t *testing.T) {
	res := Extract("Onward. [1.   ] [2. Ride east]")

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "Ride east", res.Choices[0].Label)
	assert.Equal(t, "2", res.Choices[0].ShortID)
	assert.Equal(t, "Onward.", res.NarrativeText)
}

func TestExtractMalformedMarkersIgnored(t *testing.T) {
	res := Extract("A fork in the road. [Fight] [2 Flee] [notanumber. Hide]")

	assert.Empty(t, res.Choices)
	assert.Equal(t, "A fork in the road. [Fight] [2 Flee] [notanumber. Hide]", res.NarrativeText)
}
