package usecase

import (
	"testing"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/domain/stats"
)

func fullStatsPayload() ExternalMatchStats {
	return ExternalMatchStats{
		Provider:        "sofascore",
		ProviderEventID: "12345678",
		Periods: []ExternalStatPeriod{
			{
				Period: "ALL",
				Items: []ExternalStatItem{
					{Name: "Aces", Home: "11", Away: "4"},
					{Name: "Double faults", Home: "2", Away: "5"},
					{Name: "First serve", Home: "45/62 (73%)", Away: "51/77 (66%)"},
					{Name: "First serve points", Home: "33/45 (74%)", Away: "35/51 (69%)"},
					{Name: "Second serve points", Home: "8/17 (48%)", Away: "12/26 (46%)"},
					{Name: "Winners", Home: "35", Away: "28"},
					{Name: "Unforced errors", Home: "28", Away: "31"},
					{Name: "Break points saved", Home: "6/9 (67%)", Away: "3/5 (60%)"},
					{Name: "Match points saved", Home: "2", Away: "0"},
					{Name: "Service games played", Home: "16", Away: "16"},
				},
			},
			{
				Period: "1ST",
				Items: []ExternalStatItem{
					{Name: "Aces", Home: "3", Away: "1"},
				},
			},
		},
	}
}

func TestExtractStatSheet_HomeSide(t *testing.T) {
	t.Parallel()

	sheet := ExtractStatSheet(fullStatsPayload(), match.SideHome, "L. Musetti")

	if sheet.PlayerName != "L. Musetti" {
		t.Fatalf("player name = %q", sheet.PlayerName)
	}
	assertNumber(t, sheet, stats.KeyAces, 11)
	assertNumber(t, sheet, stats.KeyDoubleFaults, 2)
	assertNumber(t, sheet, stats.KeyFirstServePct, 73)
	assertNumber(t, sheet, stats.KeyFirstServePointsPct, 74)
	assertNumber(t, sheet, stats.KeySecondServePointsPct, 48)
	assertNumber(t, sheet, stats.KeyWinners, 35)
	assertNumber(t, sheet, stats.KeyUnforcedErrors, 28)

	won, total, ok := sheet.Value(stats.KeyBreakPointsSaved).Pair()
	if !ok || won != 6 || total != 9 {
		t.Fatalf("break points saved = %d/%d ok=%v", won, total, ok)
	}
	assertNumber(t, sheet, stats.KeyMatchPointsSaved, 2)
}

func TestExtractStatSheet_AwaySideReadsAwayColumn(t *testing.T) {
	t.Parallel()

	sheet := ExtractStatSheet(fullStatsPayload(), match.SideAway, "A. de Minaur")

	assertNumber(t, sheet, stats.KeyAces, 4)
	assertNumber(t, sheet, stats.KeyFirstServePct, 66)
	assertNumber(t, sheet, stats.KeyMatchPointsSaved, 0)
	won, total, ok := sheet.Value(stats.KeyBreakPointsSaved).Pair()
	if !ok || won != 3 || total != 5 {
		t.Fatalf("break points saved = %d/%d ok=%v", won, total, ok)
	}
}

func TestExtractStatSheet_ToleratesValueShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item ExternalStatItem
		key  stats.Key
		want float64
	}{
		{name: "bare percent", item: ExternalStatItem{Name: "First serve", Home: "66%"}, key: stats.KeyFirstServePct, want: 66},
		{name: "ratio without percent", item: ExternalStatItem{Name: "First serve", Home: "3/5"}, key: stats.KeyFirstServePct, want: 60},
		{name: "bare number as percent", item: ExternalStatItem{Name: "First serve", Home: "73"}, key: stats.KeyFirstServePct, want: 73},
		{name: "decimal count", item: ExternalStatItem{Name: "Aces", Home: "7.0"}, key: stats.KeyAces, want: 7},
		{name: "number with trailing text", item: ExternalStatItem{Name: "Winners", Home: "35 total"}, key: stats.KeyWinners, want: 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ext := ExternalMatchStats{Periods: []ExternalStatPeriod{{Period: "ALL", Items: []ExternalStatItem{tt.item}}}}
			sheet := ExtractStatSheet(ext, match.SideHome, "p")
			assertNumber(t, sheet, tt.key, tt.want)
		})
	}
}

func TestExtractStatSheet_GarbageValuesStayUnavailable(t *testing.T) {
	t.Parallel()

	ext := ExternalMatchStats{Periods: []ExternalStatPeriod{{
		Period: "ALL",
		Items: []ExternalStatItem{
			{Name: "Aces", Home: "-"},
			{Name: "First serve", Home: ""},
			{Name: "Break points saved", Home: "n/a"},
		},
	}}}

	sheet := ExtractStatSheet(ext, match.SideHome, "p")
	for _, key := range stats.Keys() {
		if sheet.Value(key).Present() {
			t.Fatalf("key %s should be unavailable", key)
		}
	}
}

func TestExtractStatSheet_FallsBackToFirstPeriod(t *testing.T) {
	t.Parallel()

	ext := ExternalMatchStats{Periods: []ExternalStatPeriod{{
		Period: "FULL",
		Items:  []ExternalStatItem{{Name: "Aces", Home: "9", Away: "2"}},
	}}}

	sheet := ExtractStatSheet(ext, match.SideHome, "p")
	assertNumber(t, sheet, stats.KeyAces, 9)
}

func TestExtractStatSheet_NoPeriods(t *testing.T) {
	t.Parallel()

	sheet := ExtractStatSheet(ExternalMatchStats{}, match.SideHome, "p")
	for _, key := range stats.Keys() {
		if sheet.Value(key).Present() {
			t.Fatalf("key %s should be unavailable", key)
		}
	}
}

func assertNumber(t *testing.T, sheet stats.Sheet, key stats.Key, want float64) {
	t.Helper()
	got, ok := sheet.Value(key).Number()
	if !ok {
		t.Fatalf("key %s unavailable, want %v", key, want)
	}
	if got != want {
		t.Fatalf("key %s = %v, want %v", key, got, want)
	}
}
