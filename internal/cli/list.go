package cli

import (
	"fmt"
	"strings"

	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by memory type")
	cmd.Flags().IntP("limit", "n", 20, "Max results (0 for all)")
	cmd.Flags().Bool("ids-only", false, "Only output memory IDs")

	memoryCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	all, err := s.ExportAll(cmd.Context(), model.MemoryType(memType))
	if err != nil {
		exitErr("list", err)
	}

	memories := make([]model.Memory, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(memories) == limit {
			break
		}
		memories = append(memories, all[i])
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Println(m.ID)
		}
		return
	}

	var b strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&b, "%s [%s] %s", m.ID, m.Type, store.FormatMemory(m))
	}
	output(memories, strings.TrimRight(b.String(), "\n"))
}
