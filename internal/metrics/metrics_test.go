package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveGenerate(t *testing.T) {
	g := NewGenerate()
	g.ObserveGenerate("success", 150*time.Millisecond)
	g.ObserveGenerate("success", 2*time.Second)
	g.ObserveGenerate("timeout", 120*time.Second)

	families, err := g.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "ollama_generate_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" {
					counts[lp.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if counts["success"] != 2 {
		t.Errorf("expected 2 successes, got %v", counts["success"])
	}
	if counts["timeout"] != 1 {
		t.Errorf("expected 1 timeout, got %v", counts["timeout"])
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	g := NewGenerate()
	g.ObserveGenerate("status", time.Second)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `ollama_generate_requests_total{outcome="status"} 1`) {
		t.Errorf("counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(string(body), "ollama_generate_duration_seconds_bucket") {
		t.Error("histogram missing from exposition")
	}
}
