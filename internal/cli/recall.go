package cli

import (
	"strings"

	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search memories by meaning",
		Long: "Rank memories by embedding similarity to the query. " +
			"Every returned memory has its retrieval count bumped.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRecall,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by memory type")
	cmd.Flags().StringP("person", "p", "", "Filter by associated person")
	cmd.Flags().IntP("limit", "n", store.DefaultSearchLimit, "Max results")
	cmd.Flags().Float64("min-similarity", 0, "Drop hits below this similarity")

	memoryCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	person, _ := cmd.Flags().GetString("person")
	limit, _ := cmd.Flags().GetInt("limit")
	minSim, _ := cmd.Flags().GetFloat64("min-similarity")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query:         strings.Join(args, " "),
		Type:          model.MemoryType(memType),
		Person:        person,
		Limit:         limit,
		MinSimilarity: minSim,
	})
	if err != nil {
		exitErr("recall", err)
	}

	text := store.FormatMemories(results)
	if text == "" {
		text = store.NoMemoriesFound
	}
	output(results, text)
}
