package usecase

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/domain/stats"
)

type statShape int

const (
	shapeNumber statShape = iota
	shapePercent
	shapePair
)

// statNameIndex maps normalized provider stat names to the card key and the
// value shape. Provider stats outside this set are ignored.
var statNameIndex = map[string]struct {
	key   stats.Key
	shape statShape
}{
	"aces":              {stats.KeyAces, shapeNumber},
	"doublefaults":      {stats.KeyDoubleFaults, shapeNumber},
	"firstserve":        {stats.KeyFirstServePct, shapePercent},
	"firstservepoints":  {stats.KeyFirstServePointsPct, shapePercent},
	"secondservepoints": {stats.KeySecondServePointsPct, shapePercent},
	"winners":           {stats.KeyWinners, shapeNumber},
	"unforcederrors":    {stats.KeyUnforcedErrors, shapeNumber},
	"breakpointssaved":  {stats.KeyBreakPointsSaved, shapePair},
	"matchpointssaved":  {stats.KeyMatchPointsSaved, shapeNumber},
}

// ExtractStatSheet reads one side's column of the whole-match period into a
// sheet. Individual values never fail the extraction: anything absent or
// unparsable stays unavailable and renders as the placeholder token.
func ExtractStatSheet(ext ExternalMatchStats, side match.Side, playerName string) stats.Sheet {
	period, ok := ext.PeriodAll()
	if !ok {
		return stats.EmptySheet(playerName)
	}
	sheet := stats.NewSheet(playerName)
	for _, item := range period.Items {
		entry, ok := statNameIndex[normalizeStatName(item.Name)]
		if !ok {
			continue
		}
		raw := item.Home
		if side == match.SideAway {
			raw = item.Away
		}
		switch entry.shape {
		case shapePercent:
			if v, ok := parsePercent(raw); ok {
				sheet.Set(entry.key, stats.Number(v))
			}
		case shapePair:
			if won, total, ok := parsePair(raw); ok {
				sheet.Set(entry.key, stats.Pair(won, total))
			}
		default:
			if v, ok := parseNumber(raw); ok {
				sheet.Set(entry.key, stats.Number(v))
			}
		}
	}
	return sheet
}

func normalizeStatName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseNumber reads the leading integer or decimal from a provider value.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	i := 0
	for i < len(s) && ((s[i] >= '0' && s[i] <= '9') || s[i] == '.') {
		i++
	}
	if i == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parsePercent handles the shapes providers use for serve percentages:
// "66%", "45/62 (73%)", "3/5" and bare numbers.
func parsePercent(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if open := strings.LastIndexByte(s, '('); open >= 0 {
		if end := strings.IndexByte(s[open:], ')'); end > 0 {
			inner := strings.TrimSpace(s[open+1 : open+end])
			if v, ok := parseNumber(strings.TrimSuffix(inner, "%")); ok {
				return v, true
			}
		}
	}
	if strings.HasSuffix(s, "%") {
		return parseNumber(strings.TrimSuffix(s, "%"))
	}
	if won, total, ok := parsePair(s); ok && total > 0 {
		return float64(won) * 100 / float64(total), true
	}
	return parseNumber(s)
}

// parsePair reads "3/5" or "3/5 (60%)" into won and total.
func parsePair(raw string) (won, total int, ok bool) {
	s := strings.TrimSpace(raw)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 {
		return 0, 0, false
	}
	won, err := strconv.Atoi(strings.TrimSpace(s[:slash]))
	if err != nil {
		return 0, 0, false
	}
	rest := s[slash+1:]
	if cut := strings.IndexAny(rest, " ("); cut >= 0 {
		rest = rest[:cut]
	}
	total, err = strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, 0, false
	}
	return won, total, true
}
