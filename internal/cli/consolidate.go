package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Allreality/my-twin/internal/orchestrator"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Run a memory consolidation pass",
		Long: "Run one consolidation pass over a snapshot of long-term memory and sweep expired sessions. " +
			"With --watch, keep running on consolidation.schedule until interrupted.",
		Run: runConsolidate,
	}

	cmd.Flags().Bool("watch", false, "Run on the configured schedule until interrupted")
	cmd.Flags().String("schedule", "", "Override consolidation.schedule (cron spec or @every)")

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	watch, _ := cmd.Flags().GetBool("watch")
	spec, _ := cmd.Flags().GetString("schedule")
	if spec == "" {
		spec = settings().Consolidation.Schedule
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sched, err := orchestrator.NewScheduler(spec, s, orchestrator.NoopConsolidator{}, s, slog.Default())
	if err != nil {
		exitErr("consolidate", err)
	}

	if !watch {
		pass, err := sched.RunOnce(cmd.Context())
		if err != nil {
			exitErr("consolidate", err)
		}
		b, _ := json.MarshalIndent(pass, "", "  ")
		fmt.Println(string(b))
		return
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("consolidate: watching", "schedule", spec)
	sched.Start()
	<-ctx.Done()
	sched.Stop(context.Background())
	fmt.Printf(`{"ok":true,"runs":%d}`+"\n", sched.Runs())
}
