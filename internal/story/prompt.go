package story

import (
	"fmt"
	"strings"

	"github.com/Yates-Labs/storyteller/internal/completion"
)

// Generation parameters for each call site. They are fixed and not exposed to users.
var (
	StartParams    = completion.Params{MaxTokens: 150, Temperature: 0.7, TopP: 0.95}
	ContinueParams = completion.Params{MaxTokens: 50, Temperature: 0.7, TopP: 0.95}
)

// Parameters describe the story a user wants to start. Values are not
// validated; they are interpolated into the opening prompt as given.
type Parameters struct {
	AgeRange       string `json:"age_range"`
	CharacterCount int    `json:"character_count"`
	CharacterNames string `json:"character_names"`
	StoryType      string `json:"story_type"`
	Country        string `json:"country"`
}

// DefaultParameters returns the values the story form starts with.
func DefaultParameters() Parameters {
	return Parameters{
		AgeRange:       "6-8",
		CharacterCount: 2,
		CharacterNames: "Alice, Bob",
		StoryType:      "adventure",
		Country:        "Wonderland",
	}
}

// OpeningPrompt builds the templated prompt for a new story.
func OpeningPrompt(p Parameters) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Once upon a time in %s, there was a %s story for kids aged %s. ", p.Country, p.StoryType, p.AgeRange))
	b.WriteString(fmt.Sprintf("It featured %d brave characters: %s. ", p.CharacterCount, p.CharacterNames))
	return b.String()
}

// ContinuationPrompt joins the story so far and the user's addition with a single space.
func ContinuationPrompt(currentStory, userInput string) string {
	return strings.TrimSpace(currentStory) + " " + strings.TrimSpace(userInput)
}

// appendSegment adds a generated segment to the story on a new line.
func appendSegment(currentStory, segment string) string {
	return strings.TrimSpace(currentStory) + "\n" + strings.TrimSpace(segment)
}
