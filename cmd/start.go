package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/story"
)

var startParams = story.DefaultParameters()

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Generate the beginning of a new story",
	Long: `Generate the opening of a children's story from the story parameters.

Examples:
  storyteller start
  storyteller start --age-range 3-5 --characters 3 --names "Mia, Leo, Sam" --type "fairy tale" --country Japan`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&startParams.AgeRange, "age-range", startParams.AgeRange, "Age range of the kids (e.g., 6-8)")
	startCmd.Flags().IntVar(&startParams.CharacterCount, "characters", startParams.CharacterCount, "Number of characters")
	startCmd.Flags().StringVar(&startParams.CharacterNames, "names", startParams.CharacterNames, "Characters' names (comma separated)")
	startCmd.Flags().StringVar(&startParams.StoryType, "type", startParams.StoryType, "Type of story (e.g., adventure, fairy tale)")
	startCmd.Flags().StringVar(&startParams.Country, "country", startParams.Country, "Country the story takes place in")
}

func runStart(cmd *cobra.Command, args []string) error {
	text, err := app.builder.Start(cmd.Context(), startParams)
	if err != nil {
		return fmt.Errorf("failed to start story: %w", err)
	}

	return writeStory(cmd.OutOrStdout(), "Story:", text)
}

// printStory writes a titled story block.
func printStory(w io.Writer, title, text string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintln(w, storyStyle.Render(line))
	}
	fmt.Fprintln(w)
}
