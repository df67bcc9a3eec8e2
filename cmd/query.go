package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/agent"
	"github.com/voidhawk42/reagent-cli/internal/config"
	"github.com/voidhawk42/reagent-cli/internal/llmclient"
	"github.com/voidhawk42/reagent-cli/internal/observability"
	"github.com/voidhawk42/reagent-cli/internal/store"
	"github.com/voidhawk42/reagent-cli/internal/tools"
)

// newQueryCmd creates and configures the `query` command, the one-shot
// question path.
func newQueryCmd() *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query [question...]",
		Short: "Asks a single question and prints the answer",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line
			// flags correctly override config file and environment values.
			if err := viper.BindPFlag("agent.max_reflection_iterations", cmd.Flags().Lookup("max-reflections")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := config.Get()

			// Re-unmarshal so the flag bindings from PreRunE take effect.
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			question := strings.Join(args, " ")

			assistant, cleanup, err := buildAgent(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			record := assistant.Execute(ctx, question, cfg.Agent.MaxReflectionIterations)
			return renderRecord(cmd, record, asJSON)
		},
	}

	queryCmd.Flags().Int("max-reflections", 3, "maximum critique/revise iterations (0 disables reflection)")
	queryCmd.Flags().Bool("json", false, "print the full execution record as JSON")
	return queryCmd
}

// buildAgent assembles the pipeline from the resolved configuration: the
// model gateway, the built-in tool set and, when a database URL is
// configured, the Postgres interaction sink. The returned cleanup closes the
// pool and must always be called.
func buildAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*agent.Agent, func(), error) {
	gateway, err := llmclient.NewGateway(cfg.LLM, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build model gateway: %w", err)
	}

	cleanup := func() {}
	var sink agent.Sink
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to interaction store: %w", err)
		}
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize interaction store: %w", err)
		}
		sink = st
		cleanup = pool.Close
	}

	assistant, err := agent.New(agent.Options{
		Gateway:     gateway,
		Tools:       tools.BuiltIn(cfg.Tools, logger),
		Sink:        sink,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return assistant, cleanup, nil
}

// renderRecord prints an execution record to the command's stdout. With
// asJSON set the whole record is emitted; otherwise only the human-facing
// fields are shown. A failed record returns an error so the process exits
// non-zero.
func renderRecord(cmd *cobra.Command, record *schemas.ExecutionRecord, asJSON bool) error {
	if asJSON {
		encoded, err := marshalRecord(record)
		if err != nil {
			return fmt.Errorf("failed to encode execution record: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		if !record.Succeeded() {
			return fmt.Errorf("query failed: %s", record.Error)
		}
		return nil
	}

	if record.Warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+record.Warning)
	}
	if !record.Succeeded() {
		return fmt.Errorf("query failed: %s", record.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), record.Response)
	return nil
}

func marshalRecord(record *schemas.ExecutionRecord) (string, error) {
	encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func init() {
	rootCmd.AddCommand(newQueryCmd())
}
