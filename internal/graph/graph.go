package graph

import (
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Account Relationship Graph
//
// Undirected weighted graph over the ledger snapshot: nodes are accounts,
// an edge joins every (sender, receiver) pair that transacted, edge weight is
// the cumulative transferred amount. The graph is rebuilt wholesale from the
// snapshot on every extraction pass — graph state is always a pure function
// of ledger state, so there is no incremental mutation and no stale edges.
//
// Representation is an arena of node-index ↔ account-id mappings plus an
// adjacency list of neighbor indices. All centrality math runs on indices;
// account ids only appear at the boundary.

// Edge identifies an undirected edge by its endpoint account ids,
// normalized so A < B lexicographically.
type Edge struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Graph is the rebuilt-per-pass account relationship graph.
type Graph struct {
	ids    []string           // node index → account id
	index  map[string]int     // account id → node index
	adj    [][]int            // node index → sorted-unique neighbor indices
	weight map[[2]int]float64 // normalized (lo,hi) index pair → cumulative amount
}

// Build constructs the graph from a ledger snapshot. An empty ledger yields
// an empty graph, not an error.
func Build(ledger models.Ledger) *Graph {
	g := &Graph{
		index:  make(map[string]int),
		weight: make(map[[2]int]float64),
	}

	nodeOf := func(id string) int {
		if idx, ok := g.index[id]; ok {
			return idx
		}
		idx := len(g.ids)
		g.ids = append(g.ids, id)
		g.index[id] = idx
		g.adj = append(g.adj, nil)
		return idx
	}

	for _, tx := range ledger {
		if tx.Sender == tx.Receiver {
			continue // Self-transfers add no relationship edge
		}
		u := nodeOf(tx.Sender)
		v := nodeOf(tx.Receiver)

		key := edgeKey(u, v)
		if _, seen := g.weight[key]; !seen {
			g.adj[u] = append(g.adj[u], v)
			g.adj[v] = append(g.adj[v], u)
		}
		g.weight[key] += tx.Amount
	}

	return g
}

func edgeKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

// NodeCount returns the number of accounts in the graph.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of distinct undirected edges.
func (g *Graph) EdgeCount() int { return len(g.weight) }

// Nodes returns the account ids in arena order.
func (g *Graph) Nodes() []string { return g.ids }

// Edges returns every distinct edge with normalized endpoint order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.weight))
	for key := range g.weight {
		a, b := g.ids[key[0]], g.ids[key[1]]
		if a > b {
			a, b = b, a
		}
		edges = append(edges, Edge{A: a, B: b})
	}
	return edges
}

// Weight returns the cumulative amount carried by the edge between two
// accounts, 0 if no such edge exists.
func (g *Graph) Weight(a, b string) float64 {
	u, okU := g.index[a]
	v, okV := g.index[b]
	if !okU || !okV {
		return 0
	}
	return g.weight[edgeKey(u, v)]
}

// DegreeCentrality returns degree/(N-1) per account: the fraction of all
// possible neighbors each account actually touches. Single-node graphs
// resolve to 0 rather than dividing by zero.
func (g *Graph) DegreeCentrality() map[string]float64 {
	out := make(map[string]float64, len(g.ids))
	n := len(g.ids)
	if n == 0 {
		return out
	}
	denom := float64(n - 1)
	for i, id := range g.ids {
		if denom <= 0 {
			out[id] = 0
			continue
		}
		out[id] = float64(len(g.adj[i])) / denom
	}
	return out
}

// ClusteringCoefficients returns the local clustering coefficient per
// account: the fraction of realized links among each node's neighbors.
// Nodes with fewer than two neighbors resolve to 0.
func (g *Graph) ClusteringCoefficients() map[string]float64 {
	out := make(map[string]float64, len(g.ids))
	for i, id := range g.ids {
		k := len(g.adj[i])
		if k < 2 {
			out[id] = 0
			continue
		}
		links := 0
		for a := 0; a < k; a++ {
			for b := a + 1; b < k; b++ {
				if _, ok := g.weight[edgeKey(g.adj[i][a], g.adj[i][b])]; ok {
					links++
				}
			}
		}
		out[id] = float64(2*links) / float64(k*(k-1))
	}
	return out
}

// JaccardCoefficient returns |Γ(a) ∩ Γ(b)| / |Γ(a) ∪ Γ(b)| for two accounts.
// Isolated endpoints (empty union) resolve to 0, never an error.
func (g *Graph) JaccardCoefficient(a, b string) float64 {
	u, okU := g.index[a]
	v, okV := g.index[b]
	if !okU || !okV {
		return 0
	}

	nu := make(map[int]bool, len(g.adj[u]))
	for _, w := range g.adj[u] {
		nu[w] = true
	}

	inter := 0
	for _, w := range g.adj[v] {
		if nu[w] {
			inter++
		}
	}
	union := len(g.adj[u]) + len(g.adj[v]) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Betweenness computes node and edge betweenness centrality with Brandes'
// accumulation over unweighted shortest paths.
//
// Node scores use the standard normalization 2/((N-1)(N-2)); edge scores use
// 2/(N(N-1)). Graphs too small for the denominators return raw zeros.
func (g *Graph) Betweenness() (map[string]float64, map[Edge]float64) {
	n := len(g.ids)
	nodeBC := make([]float64, n)
	edgeBC := make(map[[2]int]float64, len(g.weight))

	// Reused per-source state
	sigma := make([]float64, n) // shortest-path counts
	dist := make([]int, n)
	delta := make([]float64, n) // dependency accumulation
	preds := make([][]int, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0

		// BFS from s, recording predecessors on shortest paths
		stack := make([]int, 0, n)
		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Accumulate dependencies in reverse BFS order
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				c := (sigma[v] / sigma[w]) * (1 + delta[w])
				edgeBC[edgeKey(v, w)] += c
				delta[v] += c
			}
			if w != s {
				nodeBC[w] += delta[w]
			}
		}
	}

	nodes := make(map[string]float64, n)
	// Each undirected pair was counted from both endpoints: halve, then apply
	// the standard normalization.
	nodeNorm := 0.0
	if n > 2 {
		nodeNorm = 1.0 / (float64(n-1) * float64(n-2))
	}
	for i, id := range g.ids {
		nodes[id] = nodeBC[i] * nodeNorm
	}

	edges := make(map[Edge]float64, len(g.weight))
	edgeNorm := 0.0
	if n > 1 {
		edgeNorm = 1.0 / (float64(n) * float64(n-1))
	}
	for key := range g.weight {
		a, b := g.ids[key[0]], g.ids[key[1]]
		if a > b {
			a, b = b, a
		}
		edges[Edge{A: a, B: b}] = edgeBC[key] * edgeNorm
	}

	return nodes, edges
}
