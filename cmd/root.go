package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/completion"
	"github.com/Yates-Labs/storyteller/internal/config"
	"github.com/Yates-Labs/storyteller/internal/logger"
	"github.com/Yates-Labs/storyteller/internal/metrics"
	"github.com/Yates-Labs/storyteller/internal/story"
)

var (
	modelName string
	logLevel  string
	logFormat string
)

// appContext holds what every command needs once startup succeeded.
type appContext struct {
	cfg      *config.Config
	builder  *story.Builder
	recorder *metrics.Recorder
}

var app *appContext

// newCompletionClient is swapped in tests.
var newCompletionClient = func(cfg completion.Config) (completion.Client, error) {
	client, err := completion.NewOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var rootCmd = &cobra.Command{
	Use:   "storyteller",
	Short: "Storyteller - co-create children's stories with an LLM",
	Long: `Storyteller lets kids shape their own story. Choose the story parameters
to generate the beginning, then add your own ideas to see the tale evolve.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for chat completions

Settings may also be placed in a .env file in the working directory.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Completion model (default from STORYTELLER_MODEL or gpt-3.5-turbo)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// setupApp loads configuration and builds the completion client. A missing
// credential stops the command before any story is requested.
func setupApp(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if modelName != "" {
		cfg.OpenAI.Model = modelName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

	client, err := newCompletionClient(cfg.Completion())
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	recorder := metrics.NewRecorder()
	app = &appContext{
		cfg:      cfg,
		builder:  story.NewBuilder(completion.Instrumented(client, recorder, cfg.OpenAI.Model)),
		recorder: recorder,
	}

	logger.Default().Debug("storyteller ready", "model", cfg.OpenAI.Model, "env", cfg.Env)
	return nil
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// After the first signal, the next one gets the default behaviour again.
	context.AfterFunc(ctx, stop)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}
