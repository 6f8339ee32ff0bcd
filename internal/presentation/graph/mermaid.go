package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
)

// GraphOverlay highlights parts of the network.
type GraphOverlay struct {
	// Taxa are leaf labels to emphasise, e.g. the dependents of a
	// reticulation.
	Taxa []string
}

// GenerateMermaid produces a Mermaid flowchart of the network.
// It applies semantic styling:
// - Root: ((Circle))
// - Reticulation: {{Hexagon}}
// - Leaf: ([Stadium]) with the taxon name
// - Default: [Rectangle]
// Tree edges are solid, reticulation edges dotted; lengths become edge labels.
func GenerateMermaid(n *network.Network, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	tags := make(map[network.NodeID]string)
	for i, h := range n.Reticulations() {
		tags[h] = fmt.Sprintf("#H%d", i+1)
	}

	order := n.Preorder()
	for _, id := range order {
		label := sanitizeLabel(n.Label(id))
		opener, closer := "[", "]"

		switch {
		case id == n.Root():
			opener, closer = "((", "))"
		case n.IsReticulation(id):
			opener, closer = "{{", "}}"
			label += tags[id]
		case n.IsLeaf(id):
			opener, closer = "([", "])"
		}
		if label == "" {
			label = " "
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", nodeID(id), opener, label, closer))
	}

	for _, id := range order {
		for i, pe := range n.Parents(id) {
			arrow := "-->"
			if i > 0 {
				arrow = "-.->"
			}
			if pe.Length != nil {
				l := newick.FormatLength(*pe.Length)
				arrow = fmt.Sprintf("-- \"%s\" -->", l)
				if i > 0 {
					arrow = fmt.Sprintf("-. \"%s\" .->", l)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", nodeID(pe.Parent), arrow, nodeID(id)))
		}
	}

	if len(tags) > 0 {
		sb.WriteString("    classDef reticulation fill:#fce7f3,stroke:#db2777,color:#000;\n")
		for _, h := range n.Reticulations() {
			sb.WriteString(fmt.Sprintf("    class %s reticulation;\n", nodeID(h)))
		}
	}

	if overlay != nil && len(overlay.Taxa) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds.
		sb.WriteString("    classDef highlight fill:#ffeb3b,stroke:#fbc02d,stroke-width:3px,color:#000;\n")
		seen := make(map[string]bool)
		for _, taxon := range overlay.Taxa {
			id, ok := n.LeafByLabel(taxon)
			if !ok || seen[taxon] {
				continue
			}
			seen[taxon] = true
			sb.WriteString(fmt.Sprintf("    class %s highlight;\n", nodeID(id)))
		}
	}

	return sb.String()
}

func nodeID(id network.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

func sanitizeLabel(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}
