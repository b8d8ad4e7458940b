package usecase

import (
	"strings"
	"testing"

	"github.com/riskibarqy/matchpoint/internal/domain/stats"
)

func TestBuildMatchCard_Sample(t *testing.T) {
	t.Parallel()

	want := strings.Join([]string{
		"Lorenzo Musetti — Alex de Minaur",
		"Счёт: 7:5, 3:6, 7:5",
		"Время: 2:48",
		"",
		"Lorenzo Musetti",
		"",
		"Эйсы: 5",
		"Двойные: 3",
		"% попадания первой подачи: 66%",
		"Очки выигр. на п.п.: 63%",
		"Очки выигр. на в.п.: 74%",
		"Виннеры: 22",
		"Невынужденные: 28",
		"Спасенные б.п.: 3/5",
		"Спасенные м.б.: 0",
		"",
		"Alex de Minaur",
		"",
		"Эйсы: 10",
		"Двойные: 0",
		"% попадания первой подачи: 66%",
		"Очки выигр. на п.п.: 66%",
		"Очки выигр. на в.п.: 59%",
		"Виннеры: 34",
		"Невынужденные: 44",
		"Спасенные б.п.: 9/12",
		"Спасенные м.б.: 1",
	}, "\n")

	got := BuildMatchCard(SampleMatchCard())
	if got != want {
		t.Fatalf("card mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildMatchCard_Deterministic(t *testing.T) {
	t.Parallel()

	card := SampleMatchCard()
	if BuildMatchCard(card) != BuildMatchCard(card) {
		t.Fatal("two renders of the same card differ")
	}
}

func TestBuildMatchCard_MissingValues(t *testing.T) {
	t.Parallel()

	card := MatchCard{
		HomeName:  "J. Sinner",
		AwayName:  "C. Alcaraz",
		HomeStats: stats.EmptySheet("J. Sinner"),
		AwayStats: stats.EmptySheet("C. Alcaraz"),
	}

	got := BuildMatchCard(card)
	if !strings.HasPrefix(got, "J. Sinner — C. Alcaraz\nСчёт: \nВремя: н/д\n\n") {
		t.Fatalf("header mismatch:\n%s", got)
	}
	if n := strings.Count(got, "н/д"); n != 19 {
		t.Fatalf("placeholder count = %d, want 19", n)
	}
	if strings.Count(got, "\n") != strings.Count(BuildMatchCard(SampleMatchCard()), "\n") {
		t.Fatal("degraded card changed the line layout")
	}
}

func TestBuildMatchCard_RoundsPercent(t *testing.T) {
	t.Parallel()

	sheet := stats.NewSheet("p")
	sheet.Set(stats.KeyFirstServePct, stats.Number(72.58))
	card := MatchCard{HomeName: "a", AwayName: "b", HomeStats: sheet, AwayStats: stats.EmptySheet("b")}

	if !strings.Contains(BuildMatchCard(card), "% попадания первой подачи: 73%") {
		t.Fatal("percent should round to the nearest integer")
	}
}

func TestFormatMatchDuration(t *testing.T) {
	t.Parallel()

	secs := func(n int) *int { return &n }

	tests := []struct {
		name    string
		seconds *int
		want    string
	}{
		{name: "nil", seconds: nil, want: ""},
		{name: "zero", seconds: secs(0), want: ""},
		{name: "two hours plus", seconds: secs(10080), want: "2:48"},
		{name: "minutes padded", seconds: secs(3900), want: "1:05"},
		{name: "under an hour", seconds: secs(2700), want: "0:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatMatchDuration(tt.seconds); got != tt.want {
				t.Fatalf("FormatMatchDuration = %q, want %q", got, tt.want)
			}
		})
	}
}
