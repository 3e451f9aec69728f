package cardgen

import (
	"encoding/json"
	"testing"
)

func TestResolveTemplateExplicit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want int
	}{
		{in: "7", want: 7},
		{in: " 10 ", want: 10},
		{in: 1, want: 1},
		{in: float64(4), want: 4},
		{in: json.Number("3"), want: 3},
		{in: "5.0", want: 5},
	}
	for _, tc := range cases {
		if got := ResolveTemplate(tc.in); got != tc.want {
			t.Fatalf("ResolveTemplate(%#v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestResolveTemplateFallsBackToRandom(t *testing.T) {
	t.Parallel()

	inputs := []any{nil, "random", "Surprise", " SURPRISEME ", 11, 0, -3, "11", "abc", 2.5, true, []int{1}}
	for _, in := range inputs {
		for i := 0; i < 50; i++ {
			got := ResolveTemplate(in)
			if got < 1 || got > TemplateCount {
				t.Fatalf("ResolveTemplate(%#v) = %d, want within [1,%d]", in, got, TemplateCount)
			}
		}
	}
}

func TestRandomTemplateCoversCatalog(t *testing.T) {
	t.Parallel()

	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		seen[RandomTemplate()] = true
	}
	if len(seen) != TemplateCount {
		t.Fatalf("saw %d templates, want %d", len(seen), TemplateCount)
	}
}
