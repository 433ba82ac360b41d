package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompt [input]",
		Short: "Show the prompt a turn would send, without calling the model",
		Long: "Assemble the system prompt for the input exactly as a turn would. " +
			"Nothing is written to working memory, but retrieved memories count as retrievals.",
		Args: cobra.MinimumNArgs(1),
		Run:  runPrompt,
	}

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	tw, err := openTwin()
	if err != nil {
		exitErr("open twin", err)
	}
	defer tw.Close()

	asm, err := tw.assembler.Assemble(cmd.Context(), sessionID(), strings.Join(args, " "))
	if err != nil {
		exitErr("assemble", err)
	}

	output(map[string]interface{}{
		"prompt":   asm.Text,
		"chars":    len(asm.Text),
		"memories": asm.Memories,
		"turns":    asm.Turns,
		"dropped":  asm.Dropped,
	}, asm.Text)
}
