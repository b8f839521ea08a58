package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/dbbuddy/internal/state"
	"github.com/user/dbbuddy/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored live sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored live sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewStore(cfg.DataDir)

		list, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRECORDS\tRECYCLED\tTERMS\tFORMAT\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
				s.ID,
				s.Records,
				s.Recycled,
				s.SearchTerms,
				s.Format,
				s.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Clear a stored session or all of them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewStore(cfg.DataDir)
		out := cmd.OutOrStdout()

		if args[0] == "all" {
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "All sessions cleared.")
			return nil
		}

		if err := store.Delete(cmd.Context(), types.SessionID(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(out, "Session %s cleared.\n", args[0])
		return nil
	},
}
