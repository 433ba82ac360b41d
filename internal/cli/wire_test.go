package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Allreality/my-twin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags gives each test a fresh config rooted in a temp HOME.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	configFile, dbPath, formatFlag, sessionFlag, locationFlag = "", "", "json", "", ""
	cfg = nil
	t.Cleanup(func() { cfg = nil })
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"go", "sqlite"}, splitList(" go, ,sqlite ,"))
	assert.Nil(t, splitList(""))
}

func TestSessionID_Default(t *testing.T) {
	resetFlags(t)
	assert.Equal(t, "cli", sessionID())
	sessionFlag = "abc"
	assert.Equal(t, "abc", sessionID())
}

func TestSettings_FlagOverrides(t *testing.T) {
	resetFlags(t)
	dbPath = filepath.Join(t.TempDir(), "flag.db")
	locationFlag = "midnight_kb"

	c := settings()
	assert.Equal(t, dbPath, c.DB.Path)
	assert.Equal(t, "midnight_kb", c.Personality.Location)
	assert.Same(t, c, settings(), "config is loaded once")
}

func TestOpenTwin_UnknownLocation(t *testing.T) {
	resetFlags(t)
	dbPath = filepath.Join(t.TempDir(), "twin.db")
	locationFlag = "moon_base"

	_, err := openTwin()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moon_base")
}

func TestOpenTwin_AssemblesFromStore(t *testing.T) {
	resetFlags(t)
	dbPath = filepath.Join(t.TempDir(), "twin.db")
	locationFlag = "blockchain_lab"
	ctx := context.Background()

	tw, err := openTwin()
	require.NoError(t, err)
	defer tw.Close()

	_, err = tw.store.Remember(ctx, store.RememberParams{Content: "Akil minted the first gallery NFT collection"})
	require.NoError(t, err)
	require.NoError(t, tw.store.AppendTurn(ctx, "cli", "hi", "hello there"))

	asm, err := tw.assembler.Assemble(ctx, "cli", "tell me about the NFT collection")
	require.NoError(t, err)
	assert.Contains(t, asm.Text, "digital twin")
	assert.Contains(t, asm.Text, "Relevant memories:")
	assert.Contains(t, asm.Text, "hello there")
	assert.Contains(t, asm.Text, "Current user input: tell me about the NFT collection")
	assert.Len(t, asm.Memories, 1)
	assert.Len(t, asm.Turns, 1)
}

func TestOrchestrator_OllamaNeedsNoKey(t *testing.T) {
	resetFlags(t)
	dbPath = filepath.Join(t.TempDir(), "twin.db")
	t.Setenv("TWIN_INFERENCE_PROVIDER", "ollama")

	tw, err := openTwin()
	require.NoError(t, err)
	defer tw.Close()

	orch, err := tw.orchestrator()
	require.NoError(t, err)
	assert.NotNil(t, orch)
}

func TestFormatStats(t *testing.T) {
	got := formatStats(&store.Stats{
		DBPath:         "/tmp/twin.db",
		DBSizeBytes:    4096,
		TotalMemories:  3,
		TotalChunks:    5,
		TotalRetrieved: 7,
		Types: []store.TypeStats{
			{Type: "episodic", Count: 2, AvgImportance: 0.75},
			{Type: "semantic", Count: 1, AvgImportance: 0.5},
		},
		Sessions: 1,
		Turns:    4,
		Emotions: 2,
	})

	assert.Contains(t, got, "Database: /tmp/twin.db (4096 bytes)")
	assert.Contains(t, got, "Memories: 3 (5 chunks, retrieved 7 times)")
	assert.Contains(t, got, "episodic      2  avg importance 0.75")
	assert.Contains(t, got, "semantic      1  avg importance 0.50")
	assert.Contains(t, got, "Sessions: 1 live, 4 turns")
	assert.True(t, strings.HasSuffix(got, "Emotional states: 2"))
}
