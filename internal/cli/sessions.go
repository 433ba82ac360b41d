package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List live sessions",
		Run:   runSessions,
	}

	cmd.Flags().Bool("sweep", false, "Delete expired sessions first")

	RootCmd.AddCommand(cmd)
}

func runSessions(cmd *cobra.Command, args []string) {
	sweep, _ := cmd.Flags().GetBool("sweep")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if sweep {
		if _, err := s.SweepSessions(cmd.Context()); err != nil {
			exitErr("sweep sessions", err)
		}
	}

	rows, err := s.ListSessions(cmd.Context())
	if err != nil {
		exitErr("list sessions", err)
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}
