package completion

import (
	"context"
	"time"
)

// Observer receives the outcome of each completion call.
type Observer interface {
	ObserveCompletion(model string, err error, elapsed time.Duration)
}

type instrumented struct {
	next     Client
	observer Observer
	model    string
}

// Instrumented wraps next so every call is reported to observer.
// Results and errors from next are returned untouched.
func Instrumented(next Client, observer Observer, model string) Client {
	if observer == nil {
		return next
	}
	return &instrumented{next: next, observer: observer, model: model}
}

func (i *instrumented) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	start := time.Now()
	text, err := i.next.Generate(ctx, prompt, params)
	i.observer.ObserveCompletion(i.model, err, time.Since(start))
	return text, err
}
