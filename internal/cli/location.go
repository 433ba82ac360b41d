package cli

import (
	"fmt"
	"strings"

	"github.com/Allreality/my-twin/internal/personality"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "location [name]",
		Short: "List locations or show one",
		Long:  "Without a name, list every location. With a name, show its overlay and greeting.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runLocation,
	}

	RootCmd.AddCommand(cmd)
}

func runLocation(cmd *cobra.Command, args []string) {
	profile, err := personality.Load(settings().Personality.File)
	if err != nil {
		exitErr("load personality", err)
	}

	if len(args) == 0 {
		locs := make([]personality.Location, 0)
		var b strings.Builder
		for _, name := range profile.LocationNames() {
			loc := profile.Location(name)
			locs = append(locs, loc)
			fmt.Fprintf(&b, "%s (%s): %s\n", loc.Name, loc.Mode, profile.Greeting(name))
		}
		output(locs, strings.TrimRight(b.String(), "\n"))
		return
	}

	name := args[0]
	if !profile.HasLocation(name) {
		exitErr("location", fmt.Errorf("unknown location %q (available: %s)", name, strings.Join(profile.LocationNames(), ", ")))
	}
	output(profile.Location(name), profile.Prompt(name))
}
