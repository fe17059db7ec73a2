package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"go.uber.org/zap"
)

const labelSnippetLength = 40

type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type GraphLink struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
}

// Graph is the node-link rendering of a set of conflicts.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// BuildGraph turns conflicts into a node-link graph. Nodes are deduplicated.
func BuildGraph(conflicts []domain.Conflict) Graph {
	g := Graph{Nodes: []GraphNode{}, Links: []GraphLink{}}
	seen := make(map[string]struct{})
	add := func(n GraphNode) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	for _, c := range conflicts {
		a := graphNode(c.BeliefAMeta, c.BeliefA)
		b := graphNode(c.BeliefBMeta, c.BeliefB)
		add(a)
		add(b)
		g.Links = append(g.Links, GraphLink{Source: a.ID, Target: b.ID, Confidence: c.Confidence})
	}
	return g
}

func graphNode(meta *domain.Belief, text string) GraphNode {
	n := GraphNode{}
	if meta != nil && meta.UUID != "" {
		n.ID = meta.UUID
	} else {
		h := sha1.Sum([]byte(text))
		n.ID = hex.EncodeToString(h[:6])
	}

	switch {
	case meta != nil && meta.Key != "":
		n.Label = meta.Key
	case len([]rune(text)) > labelSnippetLength:
		n.Label = string([]rune(text)[:labelSnippetLength]) + "..."
	default:
		n.Label = text
	}
	return n
}

// ExportGraph writes the conflict graph to path, creating its directory.
// Write failures are logged and returned; the graph is returned either way.
func (m *Monitor) ExportGraph(ctx context.Context, conflicts []domain.Conflict, path string) (Graph, error) {
	g := BuildGraph(conflicts)
	if err := writeGraph(g, path); err != nil {
		m.logger.Warn("failed to export contradiction graph", zap.String("path", path), zap.Error(err))
		return g, err
	}

	m.journal.Log(ctx, journal.New(journal.TypeGraphExported, map[string]any{
		"path":  path,
		"nodes": len(g.Nodes),
		"links": len(g.Links),
	}), monitorSource)
	return g, nil
}

func writeGraph(g Graph, path string) error {
	if path == "" {
		return fmt.Errorf("graph export path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
