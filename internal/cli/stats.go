package cli

import (
	"fmt"
	"strings"

	"github.com/Allreality/my-twin/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory counts per type and live sessions",
		Long: "Summarize long-term memory per type with its average importance, " +
			"next to live working-memory sessions and saved emotional states.",
		Run: runStats,
	}

	memoryCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	output(stats, formatStats(stats))
}

// formatStats renders stats for --format text.
func formatStats(st *store.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	fmt.Fprintf(&b, "Memories: %d (%d chunks, retrieved %d times)\n", st.TotalMemories, st.TotalChunks, st.TotalRetrieved)
	for _, ts := range st.Types {
		fmt.Fprintf(&b, "  %-10s %4d  avg importance %.2f\n", ts.Type, ts.Count, ts.AvgImportance)
	}
	fmt.Fprintf(&b, "Sessions: %d live, %d turns\n", st.Sessions, st.Turns)
	fmt.Fprintf(&b, "Emotional states: %d", st.Emotions)
	return b.String()
}
