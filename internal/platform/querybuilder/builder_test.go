package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("label", "resolved_name").
		From("watchlist").
		Where(Eq("chat_id", int64(42)), Eq("expires_on", "2026-08-23")).
		OrderBy("label ASC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT label, resolved_name FROM watchlist WHERE chat_id = $1 AND expires_on = $2 ORDER BY label ASC LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(42) || args[1] != "2026-08-23" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_ConflictSuffix(t *testing.T) {
	query, args, err := InsertInto("notified").
		Columns("chat_id", "provider", "event_id", "event_day").
		Values(int64(42), "sofascore", "1234", "2026-08-23").
		Suffix("ON CONFLICT (chat_id, provider, event_id, event_day) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO notified (chat_id, provider, event_id, event_day) VALUES ($1, $2, $3, $4) ON CONFLICT (chat_id, provider, event_id, event_day) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != int64(42) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_MultiRow(t *testing.T) {
	query, args, err := InsertInto("watchlist").
		Columns("chat_id", "label").
		Values(int64(1), "musetti").
		Values(int64(1), "de minaur").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO watchlist (chat_id, label) VALUES ($1, $2), ($3, $4)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[3] != "de minaur" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("users").
		Set("tz", "Europe/Helsinki").
		Where(Eq("chat_id", int64(42))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE users SET tz = $1 WHERE chat_id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "Europe/Helsinki" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("notified").
		Where(Expr("event_day < ?", "2026-08-20")).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM notified WHERE event_day < $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "2026-08-20" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_Requiresconditions(t *testing.T) {
	if _, _, err := DeleteFrom("watchlist").ToSQL(); err == nil {
		t.Fatalf("expected error for unconditional delete")
	}
}
