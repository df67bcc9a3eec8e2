package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
	"github.com/voidhawk42/reagent-cli/internal/observability"
)

// newInteractiveCmd creates the `interactive` command, a read/answer loop on
// stdin. Type "exit" or "quit" (or close stdin) to leave.
func newInteractiveCmd() *cobra.Command {
	interactiveCmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl"},
		Short:   "Starts an interactive question/answer session",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("agent.max_reflection_iterations", cmd.Flags().Lookup("max-reflections")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := config.Get()

			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			assistant, cleanup, err := buildAgent(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			prompt := color.New(color.FgCyan, color.Bold).SprintFunc()
			warn := color.New(color.FgYellow).SprintFunc()
			fail := color.New(color.FgRed).SprintFunc()

			fmt.Fprintln(out, "reagent interactive session. Type 'exit' to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, prompt("you> "))
				if !scanner.Scan() {
					fmt.Fprintln(out)
					break
				}
				line := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(line) {
				case "":
					continue
				case "exit", "quit":
					fmt.Fprintln(out, "bye")
					return scanner.Err()
				}

				record := assistant.Execute(ctx, line, cfg.Agent.MaxReflectionIterations)
				printInteractiveRecord(out, record, warn, fail)

				if ctx.Err() != nil {
					break
				}
			}
			return scanner.Err()
		},
	}

	interactiveCmd.Flags().Int("max-reflections", 3, "maximum critique/revise iterations (0 disables reflection)")
	return interactiveCmd
}

func printInteractiveRecord(out io.Writer, record *schemas.ExecutionRecord, warn, fail func(...interface{}) string) {
	if record.Warning != "" {
		fmt.Fprintln(out, warn("warning: "+record.Warning))
	}
	if !record.Succeeded() {
		fmt.Fprintln(out, fail("error: "+record.Error))
		return
	}
	fmt.Fprintln(out, record.Response)
	if record.Metadata != nil && len(record.Metadata.ToolsUsed) > 0 {
		fmt.Fprintln(out, warn("tools: "+strings.Join(record.Metadata.ToolsUsed, ", ")))
	}
}

func init() {
	rootCmd.AddCommand(newInteractiveCmd())
}
