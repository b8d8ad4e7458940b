package observability

import (
	"testing"

	otellog "go.opentelemetry.io/otel/log"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	idle := []any{"cycle_id", "c1", "users", 3, "events", 0, "notified", 0, "deferred", 0, "failed", 0}
	if !shouldSkipUptraceLog("detection cycle finished", idle) {
		t.Fatalf("expected idle cycle summary to be skipped")
	}

	delivered := []any{"cycle_id", "c2", "notified", 1, "deferred", 0, "failed", 0}
	if shouldSkipUptraceLog("detection cycle finished", delivered) {
		t.Fatalf("did not expect delivering cycle to be skipped")
	}

	failing := []any{"cycle_id", "c3", "notified", 0, "deferred", 0, "failed", 2}
	if shouldSkipUptraceLog("detection cycle finished", failing) {
		t.Fatalf("did not expect failing cycle to be skipped")
	}

	if shouldSkipUptraceLog("detection cycle finished", []any{"cycle_id", "c4"}) {
		t.Fatalf("summary without counters must not be skipped")
	}
	if shouldSkipUptraceLog("match card delivered", idle) {
		t.Fatalf("did not expect non-summary event to be skipped")
	}
}

func TestBuildOTelLogAttributes(t *testing.T) {
	attrs := buildOTelLogAttributes([]any{"chat_id", int64(4242), "attempt", 2, "payload"})
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "chat_id" || attrs[0].Value.AsInt64() != 4242 {
		t.Fatalf("unexpected chat_id attribute")
	}
	if attrs[1].Key != "attempt" || attrs[1].Value.AsInt64() != 2 {
		t.Fatalf("unexpected attempt attribute")
	}
	if attrs[2].Key != "payload" || attrs[2].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected payload attribute")
	}
}

func TestToOTelLogValue_Map(t *testing.T) {
	v := toOTelLogValue(map[string]any{
		"aces": 11,
		"won":  true,
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	items := v.AsMap()
	if len(items) != 2 {
		t.Fatalf("expected 2 map items, got %d", len(items))
	}
}
