package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/matchpoint/internal/domain/stats"
)

// unavailableToken is rendered wherever a card value is missing. The card
// layout never drops a line.
const unavailableToken = "н/д"

// MatchCard is the input of the notification renderer: event header data
// plus one sheet per player.
type MatchCard struct {
	HomeName  string
	AwayName  string
	ScoreSets []string
	Duration  string
	HomeStats stats.Sheet
	AwayStats stats.Sheet
}

// BuildMatchCard renders the finished-match message. The layout is fixed:
// title, score and duration lines, then one stats block per player, so two
// cards for the same match are byte for byte identical.
func BuildMatchCard(card MatchCard) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(card.HomeName)
	buf.WriteString(" — ")
	buf.WriteString(card.AwayName)
	buf.WriteString("\nСчёт: ")
	buf.WriteString(strings.Join(card.ScoreSets, ", "))
	buf.WriteString("\nВремя: ")
	if card.Duration != "" {
		buf.WriteString(card.Duration)
	} else {
		buf.WriteString(unavailableToken)
	}
	buf.WriteString("\n\n")
	writeStatsBlock(buf, card.HomeName, card.HomeStats)
	buf.WriteString("\n\n")
	writeStatsBlock(buf, card.AwayName, card.AwayStats)
	return buf.String()
}

func writeStatsBlock(buf *bytebufferpool.ByteBuffer, name string, sheet stats.Sheet) {
	buf.WriteString(name)
	buf.WriteString("\n\nЭйсы: ")
	buf.WriteString(formatCount(sheet.Value(stats.KeyAces)))
	buf.WriteString("\nДвойные: ")
	buf.WriteString(formatCount(sheet.Value(stats.KeyDoubleFaults)))
	buf.WriteString("\n% попадания первой подачи: ")
	buf.WriteString(formatPercent(sheet.Value(stats.KeyFirstServePct)))
	buf.WriteString("\nОчки выигр. на п.п.: ")
	buf.WriteString(formatPercent(sheet.Value(stats.KeyFirstServePointsPct)))
	buf.WriteString("\nОчки выигр. на в.п.: ")
	buf.WriteString(formatPercent(sheet.Value(stats.KeySecondServePointsPct)))
	buf.WriteString("\nВиннеры: ")
	buf.WriteString(formatCount(sheet.Value(stats.KeyWinners)))
	buf.WriteString("\nНевынужденные: ")
	buf.WriteString(formatCount(sheet.Value(stats.KeyUnforcedErrors)))
	buf.WriteString("\nСпасенные б.п.: ")
	buf.WriteString(formatPair(sheet.Value(stats.KeyBreakPointsSaved)))
	buf.WriteString("\nСпасенные м.б.: ")
	buf.WriteString(formatCount(sheet.Value(stats.KeyMatchPointsSaved)))
}

func formatCount(v stats.Value) string {
	n, ok := v.Number()
	if !ok {
		return unavailableToken
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatPercent(v stats.Value) string {
	n, ok := v.Number()
	if !ok {
		return unavailableToken
	}
	return strconv.Itoa(int(math.Round(n))) + "%"
}

func formatPair(v stats.Value) string {
	won, total, ok := v.Pair()
	if !ok {
		return unavailableToken
	}
	return strconv.Itoa(won) + "/" + strconv.Itoa(total)
}

// FormatMatchDuration renders played seconds as H:MM. Nil or non-positive
// input means the provider did not report a duration.
func FormatMatchDuration(seconds *int) string {
	if seconds == nil || *seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", *seconds/3600, (*seconds%3600)/60)
}

// SampleMatchCard returns the demo card rendered by the /format command.
func SampleMatchCard() MatchCard {
	home := stats.NewSheet("Lorenzo Musetti")
	home.Set(stats.KeyAces, stats.Number(5))
	home.Set(stats.KeyDoubleFaults, stats.Number(3))
	home.Set(stats.KeyFirstServePct, stats.Number(66))
	home.Set(stats.KeyFirstServePointsPct, stats.Number(63))
	home.Set(stats.KeySecondServePointsPct, stats.Number(74))
	home.Set(stats.KeyWinners, stats.Number(22))
	home.Set(stats.KeyUnforcedErrors, stats.Number(28))
	home.Set(stats.KeyBreakPointsSaved, stats.Pair(3, 5))
	home.Set(stats.KeyMatchPointsSaved, stats.Number(0))

	away := stats.NewSheet("Alex de Minaur")
	away.Set(stats.KeyAces, stats.Number(10))
	away.Set(stats.KeyDoubleFaults, stats.Number(0))
	away.Set(stats.KeyFirstServePct, stats.Number(66))
	away.Set(stats.KeyFirstServePointsPct, stats.Number(66))
	away.Set(stats.KeySecondServePointsPct, stats.Number(59))
	away.Set(stats.KeyWinners, stats.Number(34))
	away.Set(stats.KeyUnforcedErrors, stats.Number(44))
	away.Set(stats.KeyBreakPointsSaved, stats.Pair(9, 12))
	away.Set(stats.KeyMatchPointsSaved, stats.Number(1))

	return MatchCard{
		HomeName:  "Lorenzo Musetti",
		AwayName:  "Alex de Minaur",
		ScoreSets: []string{"7:5", "3:6", "7:5"},
		Duration:  "2:48",
		HomeStats: home,
		AwayStats: away,
	}
}
