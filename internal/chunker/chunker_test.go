package chunker

import (
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	result := Chunk("  \n ", DefaultOptions())
	if result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestChunk_ShortContent(t *testing.T) {
	text := "User: How are you?\nTwin: Doing well, thanks."
	result := Chunk(text, DefaultOptions())
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(result))
	}
	if result[0] != text {
		t.Errorf("expected %q, got %q", text, result[0])
	}
}

func TestChunk_KeepsTurnsWhole(t *testing.T) {
	user := "User: " + strings.Repeat("tell me about the gallery ", 12)
	twin := "Twin: " + strings.Repeat("the collection has eight pieces ", 12)
	result := Chunk(user+"\n"+twin, DefaultOptions())
	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(result), result)
	}
	if !strings.HasPrefix(result[0], "User:") || !strings.HasPrefix(result[1], "Twin:") {
		t.Errorf("expected one chunk per speaker, got %q", result)
	}
}

func TestChunk_RespectsMaxSize(t *testing.T) {
	opts := Options{TargetSize: 200, MaxSize: 300}
	text := strings.Repeat("This sentence talks about zero knowledge proofs. ", 30)
	result := Chunk(text, opts)
	if len(result) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(result))
	}
	for i, c := range result {
		if len(c) > opts.MaxSize {
			t.Errorf("chunk %d has %d bytes, max %d", i, len(c), opts.MaxSize)
		}
	}
}

func TestChunk_RunOnSentence(t *testing.T) {
	opts := Options{TargetSize: 100, MaxSize: 120}
	text := strings.Repeat("word ", 100)
	result := Chunk(text, opts)
	joined := strings.Join(result, " ")
	if strings.Count(joined, "word") != 100 {
		t.Errorf("expected every word preserved, got %d", strings.Count(joined, "word"))
	}
	for _, c := range result {
		if len(c) > opts.MaxSize {
			t.Errorf("chunk too long: %d", len(c))
		}
	}
}

func TestSentences(t *testing.T) {
	got := sentences("Hello there. Version 2.0 is out! Is it? yes")
	want := []string{"Hello there.", "Version 2.0 is out!", "Is it?", "yes"}
	if len(got) != len(want) {
		t.Fatalf("sentences = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}
