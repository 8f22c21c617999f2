package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents supported story output formats
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

var outputFormat string

// storyOutput is the JSON shape of a printed story.
type storyOutput struct {
	Story string `json:"story"`
	Model string `json:"model,omitempty"`
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", string(FormatText), "Story output format: text or json")
}

// checkOutputFormat rejects unknown formats before any story is requested.
func checkOutputFormat() error {
	switch OutputFormat(strings.ToLower(outputFormat)) {
	case FormatText, FormatJSON, "":
		return nil
	}
	return fmt.Errorf("unsupported output format: %s (supported: text, json)", outputFormat)
}

// writeStory prints text in the selected output format.
func writeStory(w io.Writer, title, text string) error {
	switch OutputFormat(strings.ToLower(outputFormat)) {
	case FormatText, "":
		printStory(w, title, text)
		return nil
	case FormatJSON:
		out := storyOutput{Story: text}
		if app != nil && app.cfg != nil {
			out.Model = app.cfg.OpenAI.Model
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	default:
		return checkOutputFormat()
	}
}
