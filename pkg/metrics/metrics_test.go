package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter_SameInstance(t *testing.T) {
	r := New()
	c := r.Counter("citycast_ingest_cities_total", "Cities ingested")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Fatalf("expected 3, got %d", c.Value())
	}
	if r.Counter("citycast_ingest_cities_total", "") != c {
		t.Fatal("expected same counter instance")
	}
}

func TestGauge(t *testing.T) {
	g := New().Gauge("citycast_records", "")
	g.Set(3)
	if g.Value() != 3 {
		t.Fatalf("expected 3, got %d", g.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	h := New().Histogram("lat_seconds", "", []float64{1, 0.1, 0.5})
	for _, v := range []float64{0.05, 0.1, 0.3, 0.8, 2} {
		h.Observe(v)
	}
	want := []uint64{2, 1, 1}
	for i, c := range h.counts {
		if c != want[i] {
			t.Errorf("bucket %v = %d, want %d", h.bounds[i], c, want[i])
		}
	}
	if h.Count() != 5 {
		t.Errorf("count = %d", h.Count())
	}
	h.Since(time.Now())
	if h.Count() != 6 {
		t.Errorf("Since did not observe")
	}
}

func TestWithLabels(t *testing.T) {
	tests := []struct {
		kvs  []string
		want string
	}{
		{nil, "q"},
		{[]string{"outcome"}, "q"},
		{[]string{"outcome", "answered"}, `q{outcome="answered"}`},
		{[]string{"a", "1", "b", "2"}, `q{a="1",b="2"}`},
	}
	for _, tt := range tests {
		if got := WithLabels("q", tt.kvs...); got != tt.want {
			t.Errorf("WithLabels(%v) = %s, want %s", tt.kvs, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter(WithLabels("citycast_query_total", "outcome", "answered"), "Queries by outcome").Add(2)
	r.Counter(WithLabels("citycast_query_total", "outcome", "not_found"), "").Inc()
	r.Histogram(WithLabels("citycast_embed_duration_seconds", "op", "batch"), "Embed latency", []float64{0.5}).Observe(0.2)

	out := r.Render()
	for _, want := range []string{
		"# HELP citycast_query_total Queries by outcome",
		"# TYPE citycast_query_total counter",
		`citycast_query_total{outcome="answered"} 2`,
		`citycast_query_total{outcome="not_found"} 1`,
		"# TYPE citycast_embed_duration_seconds histogram",
		`citycast_embed_duration_seconds_bucket{le="0.5",op="batch"} 1`,
		`citycast_embed_duration_seconds_bucket{le="+Inf",op="batch"} 1`,
		`citycast_embed_duration_seconds_count{op="batch"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE citycast_query_total") != 1 {
		t.Error("family header rendered twice")
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("hits_total", "").Inc()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "hits_total 1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
