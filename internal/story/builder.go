// Package story builds children's stories on top of a completion client.
// Start produces an opening scene from structured parameters; Continue
// extends a running story with the user's own direction.
package story

import (
	"context"

	"github.com/Yates-Labs/storyteller/internal/completion"
	"github.com/Yates-Labs/storyteller/internal/logger"
)

// Builder turns story requests into prompts and forwards them to a completion client.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	client completion.Client
}

// NewBuilder creates a story builder backed by client.
func NewBuilder(client completion.Client) *Builder {
	return &Builder{client: client}
}

// Start generates the opening of a story. Only the model's text is returned;
// the templated prompt is not part of the result.
// Client errors are returned unchanged.
func (b *Builder) Start(ctx context.Context, p Parameters) (string, error) {
	prompt := OpeningPrompt(p)
	logger.FromContext(ctx).Debug("starting story",
		"story_type", p.StoryType,
		"characters", p.CharacterCount,
		"prompt_len", len(prompt),
	)

	text, err := b.client.Generate(ctx, prompt, StartParams)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Continue extends currentStory using userInput as direction and returns the
// whole story with the new segment on its own line.
// Client errors are returned unchanged and the story is left as it was.
func (b *Builder) Continue(ctx context.Context, currentStory, userInput string) (string, error) {
	prompt := ContinuationPrompt(currentStory, userInput)
	logger.FromContext(ctx).Debug("continuing story",
		"story_len", len(currentStory),
		"prompt_len", len(prompt),
	)

	text, err := b.client.Generate(ctx, prompt, ContinueParams)
	if err != nil {
		return "", err
	}
	return appendSegment(currentStory, text), nil
}
