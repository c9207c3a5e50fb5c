package jobs

import (
	"encoding/json"
	"testing"
)

func TestDetailJSON(t *testing.T) {
	raw := detailJSON(map[string]any{"attempts": 3, "trend": "improving"})

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["attempts"] != float64(3) {
		t.Errorf("attempts = %v, want 3", out["attempts"])
	}
	if out["trend"] != "improving" {
		t.Errorf("trend = %v, want improving", out["trend"])
	}
}

func TestDetailJSONUnmarshalable(t *testing.T) {
	if got := string(detailJSON(make(chan int))); got != "{}" {
		t.Errorf("detailJSON(chan) = %q, want {}", got)
	}
}
