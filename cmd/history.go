package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/voidhawk42/reagent-cli/internal/config"
	"github.com/voidhawk42/reagent-cli/internal/observability"
	"github.com/voidhawk42/reagent-cli/internal/store"
)

// newHistoryCmd creates the `history` command, which lists recent
// interactions from the Postgres store. Requires database.url to be set.
func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recent interactions from the persistent store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := config.Get()

			if cfg.Database.URL == "" {
				return fmt.Errorf("history requires database.url (or REAGENT_DATABASE_URL) to be configured")
			}

			limit, _ := cmd.Flags().GetInt("limit")

			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to interaction store: %w", err)
			}
			defer pool.Close()

			st, err := store.New(ctx, pool, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize interaction store: %w", err)
			}

			interactions, err := st.RecentInteractions(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(interactions) == 0 {
				fmt.Fprintln(out, "no stored interactions")
				return nil
			}

			heading := color.New(color.FgCyan, color.Bold).SprintfFunc()
			for _, interaction := range interactions {
				fmt.Fprintln(out, heading("[%s] %s", interaction.CreatedAt.Format("2006-01-02 15:04:05"), interaction.Query))
				fmt.Fprintf(out, "  status: %s\n", interaction.Status)
				if interaction.Response != "" {
					fmt.Fprintf(out, "  %s\n", interaction.Response)
				}
			}
			return nil
		},
	}

	historyCmd.Flags().Int("limit", 10, "maximum number of interactions to list")
	return historyCmd
}

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}
