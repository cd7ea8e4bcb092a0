package mapping

import (
	"fmt"
	"sort"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// IssueType categorizes verification issues.
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // placement or capacity violation
	IssueRoute  IssueType = "ROUTE"  // broken or ambiguous value route
	IssueTiming IssueType = "TIMING" // recorded latency disagrees with the route
)

// Issue is one problem found in a mapping.
type Issue struct {
	Type    IssueType
	Op      dfg.OpID    // -1 if not applicable
	Val     dfg.ValID   // NoVal if not applicable
	Node    mrrg.NodeID // NoNode if not applicable
	Message string
	Details map[string]interface{}
}

// Verify checks a mapping against its graphs without trusting any occupancy
// table. An empty result means the mapping is legal.
func Verify(m *Mapping) []Issue {
	var issues []Issue

	issues = append(issues, verifyPlacement(m)...)
	issues = append(issues, verifyCapacity(m)...)

	for _, v := range m.DFG.Vals() {
		issues = append(issues, verifyRoute(m, v)...)
	}

	return issues
}

func verifyPlacement(m *Mapping) []Issue {
	var issues []Issue

	for _, op := range m.DFG.Ops() {
		id, ok := m.Placement(op.ID)
		if !ok {
			issues = append(issues, Issue{
				Type: IssueStruct, Op: op.ID, Val: dfg.NoVal, Node: mrrg.NoNode,
				Message: fmt.Sprintf("op %s is not placed", op.Name),
			})
			continue
		}

		n := m.Graph.Node(id)
		if !n.IsFunction() || !n.Supports(string(op.Opcode)) || len(n.Operands) < op.NumInputs() {
			issues = append(issues, Issue{
				Type: IssueStruct, Op: op.ID, Val: dfg.NoVal, Node: id,
				Message: fmt.Sprintf("op %s (%s) cannot execute on %s", op.Name, op.Opcode, n),
			})
		}
	}

	return issues
}

func verifyCapacity(m *Mapping) []Issue {
	var issues []Issue

	use := make(map[mrrg.NodeID]int)
	for _, op := range m.DFG.Ops() {
		if id, ok := m.Placement(op.ID); ok {
			use[id]++
		}
	}

	for _, v := range m.DFG.Vals() {
		for _, id := range m.Route(v.ID) {
			use[id]++
		}
	}

	for _, id := range sortedNodes(use) {
		n := m.Graph.Node(id)
		if use[id] > n.Capacity {
			issues = append(issues, Issue{
				Type: IssueStruct, Op: -1, Val: dfg.NoVal, Node: id,
				Message: fmt.Sprintf("%s holds %d dataflow nodes, capacity %d", n, use[id], n.Capacity),
				Details: map[string]interface{}{"use": use[id], "capacity": n.Capacity},
			})
		}
	}

	return issues
}

func sortedNodes(set map[mrrg.NodeID]int) []mrrg.NodeID {
	ids := make([]mrrg.NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func verifyRoute(m *Mapping, v *dfg.Val) []Issue {
	routeIssue := func(node mrrg.NodeID, format string, args ...interface{}) Issue {
		return Issue{
			Type: IssueRoute, Op: -1, Val: v.ID, Node: node,
			Message: fmt.Sprintf("val %s: ", v.Name) + fmt.Sprintf(format, args...),
		}
	}

	if !m.IsRouted(v.ID) {
		return []Issue{routeIssue(mrrg.NoNode, "not routed")}
	}

	src, ok := m.Placement(v.Producer)
	if !ok {
		return []Issue{routeIssue(mrrg.NoNode, "producer not placed")}
	}

	var issues []Issue

	inRoute := make(map[mrrg.NodeID]bool)
	for _, id := range m.Route(v.ID) {
		if inRoute[id] {
			issues = append(issues, routeIssue(id, "%s listed twice", m.Graph.Node(id)))
		}

		if m.Graph.Node(id).IsFunction() {
			issues = append(issues, routeIssue(id, "routes through function node %s", m.Graph.Node(id)))
		}

		inRoute[id] = true
	}

	for id := range inRoute {
		drivers := 0
		for _, f := range m.Graph.Node(id).Fanin {
			if f == id {
				continue
			}

			if inRoute[f] || f == src {
				drivers++
			}
		}

		if drivers > 1 {
			issues = append(issues, routeIssue(id, "%s has %d drivers", m.Graph.Node(id), drivers))
		}
	}

	arrival := reach(m.Graph, src, inRoute)
	for _, id := range m.Route(v.ID) {
		if _, ok := arrival[id]; !ok {
			issues = append(issues, routeIssue(id, "%s is not reachable from the producer", m.Graph.Node(id)))
		}
	}

	issues = append(issues, verifySinks(m, v, src, arrival, routeIssue)...)

	return issues
}

func verifySinks(
	m *Mapping,
	v *dfg.Val,
	src mrrg.NodeID,
	arrival map[mrrg.NodeID]int,
	routeIssue func(mrrg.NodeID, string, ...interface{}) Issue,
) []Issue {
	var issues []Issue

	for i, u := range v.Uses {
		fn, ok := m.Placement(u.Op)
		if !ok {
			continue
		}

		consumer := m.Graph.Node(fn)
		if u.Operand >= len(consumer.Operands) {
			continue
		}

		sink := consumer.Operands[u.Operand]
		at, ok := arrival[sink]
		if !ok {
			issues = append(issues, routeIssue(sink, "does not reach operand %d of %s", u.Operand, consumer))
			continue
		}

		if i >= len(m.latency[v.ID]) || m.latency[v.ID][i] != at {
			issues = append(issues, Issue{
				Type: IssueTiming, Op: u.Op, Val: v.ID, Node: sink,
				Message: fmt.Sprintf("val %s: recorded latency to %s disagrees with the route", v.Name, consumer),
				Details: map[string]interface{}{"actual_latency": at},
			})
		}

		if m.Graph.Cycle(m.Graph.Node(src).Cycle+at) != m.Graph.Node(sink).Cycle {
			issues = append(issues, Issue{
				Type: IssueTiming, Op: u.Op, Val: v.ID, Node: sink,
				Message: fmt.Sprintf("val %s: arrives at %s after %d cycles", v.Name, m.Graph.Node(sink), at),
				Details: map[string]interface{}{
					"producer_t": m.Graph.Node(src).Cycle,
					"consumer_t": m.Graph.Node(sink).Cycle,
				},
			})
		}
	}

	return issues
}

// reach walks from src through the given routing nodes and returns the number
// of cycles needed to arrive at each of them.
func reach(g *mrrg.Graph, src mrrg.NodeID, through map[mrrg.NodeID]bool) map[mrrg.NodeID]int {
	arrival := map[mrrg.NodeID]int{src: 0}
	queue := []mrrg.NodeID{src}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := g.Node(id)

		for _, f := range n.Fanout {
			if !through[f] {
				continue
			}

			if _, seen := arrival[f]; seen {
				continue
			}

			arrival[f] = arrival[id] + n.Latency
			queue = append(queue, f)
		}
	}

	return arrival
}
