package detector

import "github.com/luminasar/luminasar/internal/model"

// NetworkReport describes the topology of the transaction graph:
// accounts as nodes, transactions as directed weighted edges.
type NetworkReport struct {
	UniqueSources      int
	UniqueDestinations int
	Nodes              int
	Edges              int
	MaxFanIn           int
	MaxFanOut          int
	MaxCentrality      float64
	FanInHigh          bool
	FanOutHigh         bool
	RoundTripDetected  bool
	FunnelDetected     bool
}

// accountGraph is a directed weighted multigraph over account ids.
// Parallel edges are kept because repeated transfers between the same
// pair matter for degree centrality.
type accountGraph struct {
	nodes   map[string]struct{}
	degree  map[string]int
	fanIn   map[string]map[string]struct{}
	fanOut  map[string]map[string]struct{}
	edges   int
	sources map[string]struct{}
	dests   map[string]struct{}
}

func buildAccountGraph(transactions []model.Transaction) *accountGraph {
	g := &accountGraph{
		nodes:   make(map[string]struct{}),
		degree:  make(map[string]int),
		fanIn:   make(map[string]map[string]struct{}),
		fanOut:  make(map[string]map[string]struct{}),
		sources: make(map[string]struct{}),
		dests:   make(map[string]struct{}),
	}

	for _, txn := range transactions {
		src := txn.SourceAccount
		dst := txn.DestinationAccount
		if src == "" {
			src = "unknown"
		}
		if dst == "" {
			dst = "unknown"
		}

		g.nodes[src] = struct{}{}
		g.nodes[dst] = struct{}{}
		g.degree[src]++
		g.degree[dst]++
		g.edges++
		g.sources[src] = struct{}{}
		g.dests[dst] = struct{}{}

		if g.fanIn[dst] == nil {
			g.fanIn[dst] = make(map[string]struct{})
		}
		g.fanIn[dst][src] = struct{}{}

		if g.fanOut[src] == nil {
			g.fanOut[src] = make(map[string]struct{})
		}
		g.fanOut[src][dst] = struct{}{}
	}

	return g
}

// centrality computes normalized degree centrality: a node's degree over
// n-1 possible neighbors. A single-node graph has centrality zero.
func (g *accountGraph) centrality() map[string]float64 {
	n := len(g.nodes)
	out := make(map[string]float64, n)
	if n <= 1 {
		for node := range g.nodes {
			out[node] = 0
		}
		return out
	}
	for node := range g.nodes {
		out[node] = float64(g.degree[node]) / float64(n-1)
	}
	return out
}

// analyzeNetwork flags smurfing-style fan-in, round-tripping (one node
// with both high fan-in and high fan-out), and funnel accounts (hub
// centrality above the configured limit).
func (d *Detector) analyzeNetwork(transactions []model.Transaction) NetworkReport {
	g := buildAccountGraph(transactions)

	report := NetworkReport{
		UniqueSources:      len(g.sources),
		UniqueDestinations: len(g.dests),
		Nodes:              len(g.nodes),
		Edges:              g.edges,
	}

	for _, srcs := range g.fanIn {
		if len(srcs) > report.MaxFanIn {
			report.MaxFanIn = len(srcs)
		}
	}
	for _, dsts := range g.fanOut {
		if len(dsts) > report.MaxFanOut {
			report.MaxFanOut = len(dsts)
		}
	}

	report.FanInHigh = report.MaxFanIn > d.cfg.FanInLimit
	report.FanOutHigh = report.MaxFanOut > d.cfg.FanOutLimit

	// Round-tripping needs a single node passing money both ways at
	// scale, not two unrelated hot spots.
	for node := range g.nodes {
		if len(g.fanIn[node]) > d.cfg.FanInLimit && len(g.fanOut[node]) > d.cfg.FanOutLimit {
			report.RoundTripDetected = true
			break
		}
	}

	for _, c := range g.centrality() {
		if c > report.MaxCentrality {
			report.MaxCentrality = c
		}
	}
	report.FunnelDetected = report.MaxCentrality > d.cfg.CentralityLimit

	return report
}
