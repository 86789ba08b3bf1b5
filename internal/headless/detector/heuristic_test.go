package detector

import (
	"testing"

	"github.com/storesight/insights-crawler/internal/insights"
)

func TestHeuristic(t *testing.T) {
	d := New(10, []string{"#MainContent"}, []string{"window.__remixContext"})

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "small body triggers", body: "hi", want: true},
		{name: "keyword triggers", body: "<html>window.__remixContext = {}</html>", want: true},
		{name: "missing selector triggers", body: "<html><body><div id=\"other\"></div></body></html>", want: true},
		{name: "all conditions satisfied", body: "<div id=\"MainContent\">ok</div> and enough bytes", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.ShouldPromote(insights.FetchResult{Body: []byte(tt.body)})
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}
