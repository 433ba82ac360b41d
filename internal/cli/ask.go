package cli

import (
	"fmt"
	"strings"

	"github.com/Allreality/my-twin/internal/orchestrator"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message to the twin and print the reply",
		Long:  "Run a single conversation turn. The message can be a positional arg or piped via stdin.",
		Run:   runAsk,
	}

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	input, err := readInput(args)
	if err != nil {
		exitErr("ask", err)
	}
	if strings.TrimSpace(input) == "" {
		exitErr("ask", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	tw, err := openTwin()
	if err != nil {
		exitErr("open twin", err)
	}
	defer tw.Close()

	orch, err := tw.orchestrator()
	if err != nil {
		exitErr("start orchestrator", err)
	}

	res, err := orch.Process(cmd.Context(), orchestrator.TurnRequest{SessionID: sessionID(), Input: input})
	if err != nil {
		exitErr("ask", err)
	}

	output(res, res.Response)
}
