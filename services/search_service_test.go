package services

import (
	"strings"
	"testing"

	"backend/models"
)

func TestSplitTextChunks(t *testing.T) {
	if got := SplitTextChunks("", DefaultChunkSize, DefaultChunkOverlap); got != nil {
		t.Errorf("empty text should yield no chunks, got %v", got)
	}

	short := "Brief scope summary."
	if got := SplitTextChunks(short, DefaultChunkSize, DefaultChunkOverlap); len(got) != 1 || got[0] != short {
		t.Errorf("short text should be a single chunk, got %v", got)
	}

	words := make([]string, 600)
	for i := range words {
		words[i] = "repair"
	}
	long := strings.Join(words, " ")
	chunks := SplitTextChunks(long, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for %d runes, got %d", len([]rune(long)), len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > DefaultChunkSize {
			t.Errorf("chunk %d has %d runes, exceeds size %d", i, n, DefaultChunkSize)
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d not trimmed: %q", i, c)
		}
	}

	// consecutive chunks overlap: the tail of one reappears in the next
	tail := chunks[0][len(chunks[0])-50:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail[:20])) {
		t.Error("expected overlap between consecutive chunks")
	}
}

func TestSplitTextChunksPrefersWordBoundaries(t *testing.T) {
	text := strings.Repeat("sheathing ", 300)
	for _, c := range SplitTextChunks(text, 1000, 200) {
		if strings.HasPrefix(c, "heathing") || strings.HasSuffix(c, "sheathin") {
			t.Errorf("chunk split mid-word: %q...%q", c[:12], c[len(c)-12:])
		}
	}
}

func TestScoreTableChunk(t *testing.T) {
	table := `III EXTERIOR REPAIRS
1   Wall sheathing repairs    1,200 SF   Unit Cost $4.10   Total
2   Wall framing repairs        250 LF   Unit Cost $7.49   Total`
	prose := "The contractor shall coordinate all work with the property manager and maintain access at all times."

	if got := ScoreTableChunk(table); got < 3 {
		t.Errorf("table-like chunk scored %d, want >= 3", got)
	}
	if got := ScoreTableChunk(prose); got != 0 {
		t.Errorf("prose chunk scored %d, want 0", got)
	}
}

func TestScoreQueryMatch(t *testing.T) {
	text := "Pricing form with unit cost and total columns for each quantity."

	if got := ScoreQueryMatch(text, "unit cost total"); got != 3 {
		t.Errorf("score = %v, want 3", got)
	}
	// short terms and duplicates are ignored
	if got := ScoreQueryMatch(text, "of to unit unit UNIT"); got != 1 {
		t.Errorf("score = %v, want 1 (distinct terms >= 3 chars only)", got)
	}
	if got := ScoreQueryMatch(text, "excavation dewatering"); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestRankResults(t *testing.T) {
	results := []models.SearchResult{
		{Text: "a", Page: 1, Score: 1},
		{Text: "b", Page: 2, Score: 3},
		{Text: "c", Page: 3, Score: 3},
		{Text: "d", Page: 4, Score: 0},
	}
	ranked := RankResults(results, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].Text != "b" || ranked[1].Text != "c" {
		t.Errorf("equal scores must keep page order, got %q then %q", ranked[0].Text, ranked[1].Text)
	}
	if ranked[2].Text != "a" {
		t.Errorf("expected %q third, got %q", "a", ranked[2].Text)
	}
}
