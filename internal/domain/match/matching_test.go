package match

import "testing"

func TestNameMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		participant string
		query       string
		want        bool
	}{
		{name: "exact", participant: "Alex de Minaur", query: "Alex de Minaur", want: true},
		{name: "case insensitive", participant: "Alex de Minaur", query: "de minaur", want: true},
		{name: "single surname", participant: "Lorenzo Musetti", query: "Musetti", want: true},
		{name: "tokens out of order", participant: "Alex de Minaur", query: "minaur alex", want: true},
		{name: "diacritics in participant", participant: "Sebastián Báez", query: "sebastian baez", want: true},
		{name: "diacritics in query", participant: "Taylor Fritz", query: "Taylör Fritz", want: true},
		{name: "hyphenated", participant: "Auger-Aliassime", query: "auger aliassime", want: true},
		{name: "apostrophe", participant: "Christopher O'Connell", query: "o'connell", want: true},
		{name: "different player", participant: "Lorenzo Musetti", query: "Sinner", want: false},
		{name: "partial token missing", participant: "Alex de Minaur", query: "alex popyrin", want: false},
		{name: "empty query", participant: "Lorenzo Musetti", query: "  ", want: false},
		{name: "empty participant", participant: "", query: "Musetti", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NameMatches(tt.participant, tt.query); got != tt.want {
				t.Fatalf("NameMatches(%q, %q) = %v, want %v", tt.participant, tt.query, got, tt.want)
			}
		})
	}
}

func TestFoldName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "  Novak   Djokovic ", want: "novak djokovic"},
		{in: "Sebastián Báez", want: "sebastian baez"},
		{in: "Auger-Aliassime", want: "auger aliassime"},
		{in: "J.J. Wolf", want: "j j wolf"},
		{in: "Стадион", want: ""},
	}

	for _, tt := range tests {
		if got := FoldName(tt.in); got != tt.want {
			t.Fatalf("FoldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
