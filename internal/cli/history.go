package cli

import (
	"github.com/Allreality/my-twin/internal/working"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a session's recent turns",
		Long:  "Show the session's working memory, oldest first. Expired sessions are empty.",
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "n", working.DefaultMaxTurns, "Max turns")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	turns, err := s.Recent(cmd.Context(), sessionID(), limit)
	if err != nil {
		exitErr("history", err)
	}

	output(turns, working.FormatTurns(turns))
}
