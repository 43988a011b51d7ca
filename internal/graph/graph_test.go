package graph

import (
	"math"
	"testing"
	"time"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

func ledgerFromPairs(pairs [][2]string) models.Ledger {
	ledger := make(models.Ledger, 0, len(pairs))
	for i, p := range pairs {
		ledger = append(ledger, models.Transaction{
			ID:        p[0] + "-" + p[1],
			Sender:    p[0],
			Receiver:  p[1],
			Amount:    100,
			Timestamp: time.Unix(int64(i), 0).UTC(),
		})
	}
	return ledger
}

func TestBuild_EmptyLedger(t *testing.T) {
	g := Build(nil)

	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("Expected empty graph from empty ledger. Got %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if len(g.DegreeCentrality()) != 0 {
		t.Errorf("Expected empty degree map for empty graph")
	}
	nodes, edges := g.Betweenness()
	if len(nodes) != 0 || len(edges) != 0 {
		t.Errorf("Expected empty betweenness maps for empty graph")
	}
}

func TestBuild_CumulativeWeights(t *testing.T) {
	ledger := ledgerFromPairs([][2]string{{"A", "B"}, {"A", "B"}, {"B", "A"}})

	g := Build(ledger)

	if g.EdgeCount() != 1 {
		t.Fatalf("Expected 1 undirected edge, got %d", g.EdgeCount())
	}
	if w := g.Weight("A", "B"); math.Abs(w-300) > 1e-9 {
		t.Errorf("Expected cumulative weight 300, got %f", w)
	}
	if w := g.Weight("B", "A"); math.Abs(w-300) > 1e-9 {
		t.Errorf("Expected weight lookup to be symmetric, got %f", w)
	}
}

func TestDegreeCentrality_PathGraph(t *testing.T) {
	// A - B - C: center touches both possible neighbors, ends touch one of two
	g := Build(ledgerFromPairs([][2]string{{"A", "B"}, {"B", "C"}}))

	dc := g.DegreeCentrality()

	if math.Abs(dc["B"]-1.0) > 1e-9 {
		t.Errorf("Expected degree centrality 1.0 for center node. Got: %f", dc["B"])
	}
	if math.Abs(dc["A"]-0.5) > 1e-9 || math.Abs(dc["C"]-0.5) > 1e-9 {
		t.Errorf("Expected degree centrality 0.5 for path ends. Got: A=%f C=%f", dc["A"], dc["C"])
	}
}

func TestBetweenness_PathGraph(t *testing.T) {
	g := Build(ledgerFromPairs([][2]string{{"A", "B"}, {"B", "C"}}))

	nodes, edges := g.Betweenness()

	// B sits on the single A-C shortest path; normalized score is 1.0
	if math.Abs(nodes["B"]-1.0) > 1e-9 {
		t.Errorf("Expected node betweenness 1.0 for bridge node. Got: %f", nodes["B"])
	}
	if nodes["A"] != 0 || nodes["C"] != 0 {
		t.Errorf("Expected 0 betweenness for path ends. Got: A=%f C=%f", nodes["A"], nodes["C"])
	}

	// Each edge carries 2 of the 3 unordered pairs → 2/3 after normalization
	ab := edges[Edge{A: "A", B: "B"}]
	if math.Abs(ab-2.0/3.0) > 1e-9 {
		t.Errorf("Expected edge betweenness 2/3 for path edge. Got: %f", ab)
	}
}

func TestClusteringAndJaccard_Triangle(t *testing.T) {
	g := Build(ledgerFromPairs([][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}))

	cc := g.ClusteringCoefficients()
	for _, node := range []string{"A", "B", "C"} {
		if math.Abs(cc[node]-1.0) > 1e-9 {
			t.Errorf("Expected clustering coefficient 1.0 in a triangle for %s. Got: %f", node, cc[node])
		}
	}

	// Γ(A)={B,C}, Γ(B)={A,C} → intersection {C}, union {A,B,C}
	j := g.JaccardCoefficient("A", "B")
	if math.Abs(j-1.0/3.0) > 1e-9 {
		t.Errorf("Expected Jaccard 1/3 for triangle edge. Got: %f", j)
	}

	// No betweenness inside a triangle: every pair is directly connected
	nodes, _ := g.Betweenness()
	for node, bc := range nodes {
		if bc != 0 {
			t.Errorf("Expected 0 betweenness in triangle for %s. Got: %f", node, bc)
		}
	}
}

func TestJaccard_IsolatedEndpoints(t *testing.T) {
	g := Build(ledgerFromPairs([][2]string{{"A", "B"}}))

	if j := g.JaccardCoefficient("A", "Z"); j != 0 {
		t.Errorf("Expected 0 Jaccard for unknown node, got %f", j)
	}
}

func TestBuild_SelfTransferAddsNoEdge(t *testing.T) {
	g := Build(ledgerFromPairs([][2]string{{"A", "A"}, {"A", "B"}}))

	if g.EdgeCount() != 1 {
		t.Errorf("Expected self-transfer to add no edge. Got %d edges", g.EdgeCount())
	}
}
