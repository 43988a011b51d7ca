package features

import (
	"github.com/chainsift/fraudscore-engine/internal/graph"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Graph-Structural Feature Extraction
//
// Rebuilds the account relationship graph from the ledger snapshot and
// derives structural metrics:
//
//   Per node:  degree centrality, betweenness centrality (shortest-path
//              based, standard normalization), local clustering coefficient
//   Per edge:  edge betweenness centrality, Jaccard neighborhood similarity
//              of the two endpoints
//
// Accounts that only ever appear on one side of a self-transfer have no
// graph entry; the assembler defaults their columns to zero.

// Graph node feature column names.
const (
	FeatDegreeCentrality      = "degree_centrality"
	FeatBetweennessCentrality = "betweenness_centrality"
	FeatClusteringCoefficient = "clustering_coefficient"
)

// Graph edge feature column names.
const (
	FeatEdgeBetweenness    = "edge_betweenness"
	FeatJaccardCoefficient = "jaccard_coefficient"
)

// ExtractGraphNodes produces one FeatureRecord per account in the graph.
// An empty ledger yields an empty map, not an error.
func ExtractGraphNodes(ledger models.Ledger) map[string]models.FeatureRecord {
	g := graph.Build(ledger)
	out := make(map[string]models.FeatureRecord, g.NodeCount())

	degree := g.DegreeCentrality()
	betweenness, _ := g.Betweenness()
	clustering := g.ClusteringCoefficients()

	for _, node := range g.Nodes() {
		out[node] = models.FeatureRecord{
			FeatDegreeCentrality:      degree[node],
			FeatBetweennessCentrality: betweenness[node],
			FeatClusteringCoefficient: clustering[node],
		}
	}
	return out
}

// ExtractGraphEdges produces one FeatureRecord per distinct undirected edge.
func ExtractGraphEdges(ledger models.Ledger) map[graph.Edge]models.FeatureRecord {
	g := graph.Build(ledger)
	out := make(map[graph.Edge]models.FeatureRecord, g.EdgeCount())

	_, edgeBetweenness := g.Betweenness()

	for _, edge := range g.Edges() {
		out[edge] = models.FeatureRecord{
			FeatEdgeBetweenness:    edgeBetweenness[edge],
			FeatJaccardCoefficient: g.JaccardCoefficient(edge.A, edge.B),
		}
	}
	return out
}
