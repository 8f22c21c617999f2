package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	currentStory string
	storyFile    string
	userInput    string
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Add your own ideas and generate more of the story",
	Long: `Continue an existing story with your own direction. The story so far is
kept as is and the newly generated part is appended on a new line.

Examples:
  storyteller continue --story "Once upon a time." --input "A dragon appeared."
  storyteller continue --story-file story.txt --input "Then it started to snow."
  cat story.txt | storyteller continue --story-file - --input "Everyone went home."`,
	Args: cobra.NoArgs,
	RunE: runContinue,
}

func init() {
	rootCmd.AddCommand(continueCmd)
	continueCmd.Flags().StringVar(&currentStory, "story", "", "The current story text")
	continueCmd.Flags().StringVar(&storyFile, "story-file", "", "Read the current story from a file ('-' for stdin)")
	continueCmd.Flags().StringVar(&userInput, "input", "", "Your addition to the story")
	continueCmd.MarkFlagsMutuallyExclusive("story", "story-file")
}

func runContinue(cmd *cobra.Command, args []string) error {
	current, err := readCurrentStory(cmd.InOrStdin())
	if err != nil {
		return err
	}

	updated, err := app.builder.Continue(cmd.Context(), current, userInput)
	if err != nil {
		return fmt.Errorf("failed to continue story: %w", err)
	}

	return writeStory(cmd.OutOrStdout(), "Story:", updated)
}

func readCurrentStory(stdin io.Reader) (string, error) {
	switch storyFile {
	case "":
		return currentStory, nil
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read story from stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(storyFile)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("story file %s does not exist", storyFile)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read story file: %w", err)
		}
		return string(b), nil
	}
}
