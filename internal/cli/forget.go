package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Delete a memory permanently",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	memoryCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	id := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	deleted, err := s.Forget(cmd.Context(), id)
	if err != nil {
		exitErr("forget", err)
	}
	if !deleted {
		exitErr("forget", fmt.Errorf("memory %s not found", id))
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", id)
}
