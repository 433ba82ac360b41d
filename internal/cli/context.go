package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Format relevant memories for a prompt",
		Long:  "Search for the five most relevant memories and print them as the prompt's memory block.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	memoryCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	text, err := s.Context(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("context", err)
	}
	fmt.Println(text)
}
