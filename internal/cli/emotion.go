package cli

import (
	"time"

	"github.com/spf13/cobra"
)

type emotionView struct {
	SessionID  string    `json:"session_id"`
	Emotion    string    `json:"emotion"`
	Intensity  float64   `json:"intensity"`
	Momentum   float64   `json:"momentum"`
	Trigger    string    `json:"trigger"`
	LastUpdate time.Time `json:"last_update"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "emotion",
		Short: "Show or nudge a session's emotional state",
		Long: "Show the session's emotional state with decay applied. " +
			"With --event, apply a sentiment event in [-1, 1] first and save the result.",
		Run: runEmotion,
	}

	cmd.Flags().Float64P("event", "e", 0, "Sentiment of an event to apply")
	cmd.Flags().StringP("trigger", "t", "manual", "Trigger text for --event")

	RootCmd.AddCommand(cmd)
}

func runEmotion(cmd *cobra.Command, args []string) {
	trigger, _ := cmd.Flags().GetString("trigger")
	event, _ := cmd.Flags().GetFloat64("event")

	tw, err := openTwin()
	if err != nil {
		exitErr("open twin", err)
	}
	defer tw.Close()

	sid := sessionID()
	st := tw.emotions.Get(cmd.Context(), sid)
	if cmd.Flags().Changed("event") {
		st = tw.emotions.Update(cmd.Context(), sid, event, trigger)
	}

	view := emotionView{
		SessionID:  sid,
		Emotion:    string(st.Emotion()),
		Intensity:  st.Intensity(),
		Momentum:   st.Momentum(),
		Trigger:    st.Trigger(),
		LastUpdate: st.LastUpdate(),
	}
	output(view, st.Context())
}
