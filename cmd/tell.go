package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/story"
)

const quitCommand = "/quit"

var tellCmd = &cobra.Command{
	Use:   "tell",
	Short: "Tell a story interactively in the terminal",
	Long: `Start an interactive story session. You are asked for the story parameters
(press Enter to keep the default shown in brackets), the beginning is
generated, and then every line you type continues the story.

Type /quit or press Ctrl-D to finish. Nothing is saved between sessions.`,
	Args: cobra.NoArgs,
	RunE: runTell,
}

func init() {
	rootCmd.AddCommand(tellCmd)
}

func runTell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := newLineReader(ctx, cmd.InOrStdin())

	fmt.Fprintln(out, headerStyle.Render("Interactive Story Teller for Kids"))
	fmt.Fprintln(out, tipStyle.Render("Choose the story parameters to generate the beginning."))
	fmt.Fprintln(out)

	params, err := askParameters(ctx, in, out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	text, err := app.builder.Start(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to start story: %w", err)
	}
	current := text
	printStory(out, "Story:", current)

	for {
		fmt.Fprintln(out, tipStyle.Render("Tip: add your ideas or directions, then press Enter to continue the story ("+quitCommand+" to stop)."))
		fmt.Fprint(out, promptStyle.Render("Your addition: "))
		addition, err := in.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(addition) == quitCommand {
			break
		}

		updated, err := app.builder.Continue(ctx, current, addition)
		if err != nil {
			// The story stays as it was; the user can try again.
			fmt.Fprintln(out, errorStyle.Render("Error:"), err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		current = updated
		printStory(out, "Story:", current)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, successStyle.Render("✓ The end."))
	return nil
}

// lineReader reads stdin lines in the background so a blocked read never
// holds up context cancellation.
type lineReader struct {
	lines chan string
	err   error // valid once lines is closed
}

func newLineReader(ctx context.Context, r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lr.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		lr.err = scanner.Err()
	}()
	return lr
}

// next returns the next line, io.EOF at the end of input, or the context error.
func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			if lr.err != nil {
				return "", lr.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// askParameters reads the five story parameters, keeping defaults on empty
// lines. It returns io.EOF if input ended first.
func askParameters(ctx context.Context, in *lineReader, out io.Writer) (story.Parameters, error) {
	p := story.DefaultParameters()

	fields := []struct {
		label string
		value *string
	}{
		{"Age Range (e.g., 6-8)", &p.AgeRange},
		{"Characters' Names (comma separated)", &p.CharacterNames},
		{"Type of Story (e.g., adventure, fairy tale)", &p.StoryType},
		{"Country", &p.Country},
	}

	for i, f := range fields {
		line, err := ask(ctx, in, out, f.label, *f.value)
		if err != nil {
			return p, err
		}
		*f.value = line

		// Character count is asked right after the age range, like the story form.
		if i == 0 {
			count, err := askCount(ctx, in, out, p.CharacterCount)
			if err != nil {
				return p, err
			}
			p.CharacterCount = count
		}
	}
	return p, nil
}

func askCount(ctx context.Context, in *lineReader, out io.Writer, def int) (int, error) {
	for {
		line, err := ask(ctx, in, out, "Number of Characters", strconv.Itoa(def))
		if err != nil {
			return def, err
		}
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			return n, nil
		}
		fmt.Fprintln(out, errorStyle.Render("Please enter a whole number."))
	}
}

func ask(ctx context.Context, in *lineReader, out io.Writer, label, def string) (string, error) {
	fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("%s [%s]: ", label, def)))
	line, err := in.next(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == "" {
		return def, nil
	}
	return line, nil
}
