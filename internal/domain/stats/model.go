package stats

// Key is one of the fixed statistics extracted for the match card. The set
// never grows from provider payloads; unknown provider stats are ignored.
type Key string

const (
	KeyAces                 Key = "aces"
	KeyDoubleFaults         Key = "double_faults"
	KeyFirstServePct        Key = "first_serve_pct"
	KeyFirstServePointsPct  Key = "first_serve_points_pct"
	KeySecondServePointsPct Key = "second_serve_points_pct"
	KeyWinners              Key = "winners"
	KeyUnforcedErrors       Key = "unforced_errors"
	KeyBreakPointsSaved     Key = "break_points_saved"
	KeyMatchPointsSaved     Key = "match_points_saved"
)

// Keys lists every card statistic in render order.
func Keys() []Key {
	return []Key{
		KeyAces,
		KeyDoubleFaults,
		KeyFirstServePct,
		KeyFirstServePointsPct,
		KeySecondServePointsPct,
		KeyWinners,
		KeyUnforcedErrors,
		KeyBreakPointsSaved,
		KeyMatchPointsSaved,
	}
}

// Value is a single extracted statistic: a plain number, a won/total pair,
// or unavailable. Unavailable is a first-class state, not an error.
type Value struct {
	present bool
	number  float64
	isPair  bool
	won     int
	total   int
}

func Number(n float64) Value {
	return Value{present: true, number: n}
}

func Pair(won, total int) Value {
	return Value{present: true, isPair: true, won: won, total: total}
}

func Unavailable() Value {
	return Value{}
}

func (v Value) Present() bool {
	return v.present
}

func (v Value) Number() (float64, bool) {
	if !v.present || v.isPair {
		return 0, false
	}
	return v.number, true
}

func (v Value) Pair() (won, total int, ok bool) {
	if !v.present || !v.isPair {
		return 0, 0, false
	}
	return v.won, v.total, true
}

// Sheet holds one player's card statistics. Missing keys read as
// Unavailable, so a zero-value map never breaks rendering.
type Sheet struct {
	PlayerName string
	Values     map[Key]Value
}

func NewSheet(playerName string) Sheet {
	return Sheet{
		PlayerName: playerName,
		Values:     make(map[Key]Value, len(Keys())),
	}
}

// EmptySheet is the degraded form used when statistics could not be
// fetched: the card still renders, every line unavailable.
func EmptySheet(playerName string) Sheet {
	return Sheet{PlayerName: playerName}
}

func (s Sheet) Value(key Key) Value {
	if s.Values == nil {
		return Unavailable()
	}
	if v, ok := s.Values[key]; ok {
		return v
	}
	return Unavailable()
}

func (s *Sheet) Set(key Key, value Value) {
	if s.Values == nil {
		s.Values = make(map[Key]Value, len(Keys()))
	}
	s.Values[key] = value
}
