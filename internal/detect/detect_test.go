package detect

import (
	"testing"

	"dirigent/internal/types"
)

func TestScoreKeyword(t *testing.T) {
	lower, tokens := tokenize("Fix the SQL injection in the login handler")

	tests := []struct {
		keyword string
		want    float64
	}{
		{"sql injection", 2.0},  // exact phrase
		{"login", 2.0},          // single word present
		{"injection attack", 0.5}, // partial: only "injection"
		{"csrf", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := scoreKeyword(lower, tokens, tt.keyword); got != tt.want {
			t.Errorf("scoreKeyword(%q) = %v, want %v", tt.keyword, got, tt.want)
		}
	}
}

func TestScoreKeyword_AllWordsSeparate(t *testing.T) {
	lower, tokens := tokenize("validate the schema before the request")
	if got := scoreKeyword(lower, tokens, "schema validate"); got != 1.5 {
		t.Fatalf("scoreKeyword = %v, want 1.5 for all words present out of order", got)
	}
}

func TestLayerDetector_ReactComponent(t *testing.T) {
	d := NewLayerDetector(nil)
	res := d.Detect("Create a React component with form validation")

	if res.Layer != types.LayerPresentation {
		t.Fatalf("Layer = %s, want %s", res.Layer, types.LayerPresentation)
	}
	if res.Confidence <= 0.1 {
		t.Fatalf("Confidence = %v, want > 0.1", res.Confidence)
	}
	found := false
	for _, ind := range res.Indicators {
		if ind == "react" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Indicators = %v, want to contain %q", res.Indicators, "react")
	}
}

func TestLayerDetector_NoMatchReturnsWildcard(t *testing.T) {
	d := NewLayerDetector(nil)
	res := d.Detect("zzz qqq xyzzy")

	if res.Layer != types.LayerWildcard {
		t.Fatalf("Layer = %s, want wildcard", res.Layer)
	}
	if res.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", res.Confidence)
	}
	if len(res.Alternates) != 0 {
		t.Fatalf("Alternates = %v, want none for zero-score input", res.Alternates)
	}
}

func TestLayerDetector_BelowThresholdCarriesAlternates(t *testing.T) {
	d := NewLayerDetectorWithThreshold(nil, 1.01)
	res := d.Detect("add a database migration")

	if res.Layer != types.LayerWildcard {
		t.Fatalf("Layer = %s, want wildcard under strict threshold", res.Layer)
	}
	if len(res.Alternates) == 0 {
		t.Fatalf("expected alternates for a scoring but sub-threshold input")
	}
	if len(res.Alternates) > 3 {
		t.Fatalf("Alternates = %d entries, want at most 3", len(res.Alternates))
	}
	if res.Alternates[0].Layer != types.LayerData {
		t.Fatalf("top alternate = %s, want %s", res.Alternates[0].Layer, types.LayerData)
	}
}

func TestLayerDetector_Deterministic(t *testing.T) {
	d := NewLayerDetector(nil)
	first := d.Detect("refactor the repository adapter for the payment gateway")
	for i := 0; i < 5; i++ {
		got := d.Detect("refactor the repository adapter for the payment gateway")
		if got.Layer != first.Layer || got.Confidence != first.Confidence {
			t.Fatalf("run %d: got (%s, %v), want (%s, %v)", i, got.Layer, got.Confidence, first.Layer, first.Confidence)
		}
	}
}

func TestTopicDetector(t *testing.T) {
	d := NewTopicDetector(nil)
	res := d.Detect("add input validation and fix the sql injection vulnerability", 0)

	if len(res) == 0 {
		t.Fatalf("expected detections")
	}
	topics := make(map[string]float64)
	for _, det := range res {
		topics[det.Topic] = det.Confidence
	}
	if topics["validation"] == 0 {
		t.Errorf("expected validation topic, got %v", topics)
	}
	if topics["security"] == 0 {
		t.Errorf("expected security topic, got %v", topics)
	}

	// Sorted descending by confidence.
	for i := 1; i < len(res); i++ {
		if res[i].Confidence > res[i-1].Confidence {
			t.Fatalf("results not sorted: %v before %v", res[i-1], res[i])
		}
	}
}

func TestTopicDetector_ThresholdPerCall(t *testing.T) {
	d := NewTopicDetector(nil)
	loose := d.Detect("testing the cache", 0.1)
	strict := d.Detect("testing the cache", 0.95)
	if len(strict) > len(loose) {
		t.Fatalf("strict threshold returned more topics (%d) than loose (%d)", len(strict), len(loose))
	}
}

func TestTechDetector(t *testing.T) {
	d := NewTechDetector(nil)
	res := d.Detect("Build a React app with a PostgreSQL database behind GraphQL")

	got := make(map[string]types.TechCategory)
	for _, det := range res {
		got[det.Name] = det.Category
	}
	if got["react"] != types.TechFrontend {
		t.Errorf("react category = %v, want frontend (detections: %v)", got["react"], res)
	}
	if got["postgresql"] != types.TechDatabase {
		t.Errorf("postgresql category = %v, want database", got["postgresql"])
	}
	if got["graphql"] != types.TechAPI {
		t.Errorf("graphql category = %v, want api", got["graphql"])
	}
}

func TestTechDetector_SupportingAloneDoesNotTrigger(t *testing.T) {
	d := NewTechDetector(nil)
	// "fixture" supports pytest but never names it.
	res := d.Detect("add a fixture for the new module")
	for _, det := range res {
		if det.Name == "pytest" {
			t.Fatalf("pytest detected from supporting keyword alone")
		}
	}
}

func TestTechDetector_ShortAliasNeedsWholeToken(t *testing.T) {
	d := NewTechDetector(nil)
	// "its" contains "ts" but must not fire the typescript alias.
	res := d.Detect("update its settings")
	for _, det := range res {
		if det.Name == "typescript" {
			t.Fatalf("typescript detected from substring of unrelated word")
		}
	}
}

func TestRegistry_AddKeywords(t *testing.T) {
	reg := NewLayerRegistry()
	reg.AddKeywords(types.LayerDomain, "hexagon", "port definition")

	d := NewLayerDetectorWithThreshold(reg, 0.01)
	res := d.Detect("define the hexagon boundary")
	if res.Layer != types.LayerDomain {
		t.Fatalf("Layer = %s, want domain after custom keyword", res.Layer)
	}
}

func TestKeywords_Union(t *testing.T) {
	dets := []types.TopicDetection{
		{Topic: "a", Keywords: []string{"x", "y"}},
		{Topic: "b", Keywords: []string{"y", "z"}},
	}
	got := Keywords(dets)
	want := []string{"x", "y", "z"}
	if len(got) != len(want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keywords = %v, want %v", got, want)
		}
	}
}
