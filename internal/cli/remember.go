package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a long-term memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("type", "t", "semantic", "Type: episodic, semantic, procedural, emotional, working")
	cmd.Flags().Float64P("valence", "v", 0, "Emotional valence in [-1, 1]")
	cmd.Flags().Float64P("importance", "i", 0.5, "Importance in [0, 1]")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().StringP("people", "p", "", "Comma-separated associated people")

	memoryCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	valence, _ := cmd.Flags().GetFloat64("valence")
	importance, _ := cmd.Flags().GetFloat64("importance")
	tags, _ := cmd.Flags().GetString("tags")
	people, _ := cmd.Flags().GetString("people")

	content, err := readInput(args)
	if err != nil {
		exitErr("remember", err)
	}
	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Remember(cmd.Context(), store.RememberParams{
		Content:          content,
		Type:             model.MemoryType(memType),
		EmotionalValence: valence,
		Importance:       importance,
		Tags:             splitList(tags),
		AssociatedPeople: splitList(people),
	})
	if err != nil {
		exitErr("remember", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
