package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/Allreality/my-twin/internal/orchestrator"
	"github.com/Allreality/my-twin/internal/working"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the twin interactively",
		Long: "Start a conversation REPL. Without --session a new session ID is generated. " +
			"Consolidation runs in the background on consolidation.schedule. " +
			"Commands: /emotion, /history, /quit.",
		Run: runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	sid := sessionFlag
	if sid == "" {
		sid = uuid.New().String()
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

	sched, err := orchestrator.NewScheduler(settings().Consolidation.Schedule,
		tw.store, orchestrator.NoopConsolidator{}, tw.store, slog.Default())
	if err != nil {
		exitErr("start consolidation", err)
	}
	sched.Start()
	defer sched.Stop(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(os.Stderr, "session: %s\n", sid)
	fmt.Println(tw.profile.Greeting(settings().Personality.Location))

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/emotion":
			fmt.Println(tw.emotions.Get(ctx, sid).Context())
			continue
		case "/history":
			turns, err := tw.store.Recent(ctx, sid, working.DefaultMaxTurns)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: history: %v\n", err)
				continue
			}
			fmt.Println(working.FormatTurns(turns))
			continue
		}

		res, err := orch.Process(ctx, orchestrator.TurnRequest{SessionID: sid, Input: line})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", res.Response)
	}
}
