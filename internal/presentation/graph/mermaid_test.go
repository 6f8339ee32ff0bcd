package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/reticula/internal/presentation/graph"
	"github.com/aretw0/reticula/pkg/newick"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		overlay  *graph.GraphOverlay
		contains []string
		absent   []string
	}{
		{
			name:  "Tree Shapes",
			input: "((A,B)x,C);",
			contains: []string{
				"graph TD",
				"n0((\" \"))",
				"n1[\"x\"]",
				"n2([\"A\"])",
				"n0 --> n1",
				"n1 --> n2",
			},
			absent: []string{"-.->", "classDef reticulation"},
		},
		{
			name:  "Reticulation",
			input: "(((A)#H1,B),(#H1.2,C),D);",
			contains: []string{
				"n2{{\"#H1\"}}",
				"n1 --> n2",
				"n5 -.-> n2",
				"class n2 reticulation;",
			},
		},
		{
			name:  "Edge Lengths",
			input: "((A:1,(B:0.5)#H1:0.5):1,(#H1.2:0,C:2):1);",
			contains: []string{
				`-- "0.5" -->`,
				`-. "0" .->`,
			},
		},
		{
			name:    "Overlay",
			input:   "((A,B),(C,D));",
			overlay: &graph.GraphOverlay{Taxa: []string{"A", "A", "Z"}},
			contains: []string{
				"classDef highlight",
				"class n2 highlight;",
			},
		},
		{
			name:     "Label Escaping",
			input:    "(a\"b,B);",
			contains: []string{"n1([\"a'b\"])"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newick.ParseNetwork(tt.input)
			if err != nil {
				t.Fatalf("ParseNetwork(%q) error = %v", tt.input, err)
			}
			got := graph.GenerateMermaid(n, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, bad)
				}
			}
		})
	}
}
