package mapping

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteReport prints the status, the placement of every op and the route of
// every value.
func WriteReport(w io.Writer, m *Mapping, issues []Issue) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "MAPPING REPORT: %s at II=%d\n", m.DFG.Name, m.Graph.II)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Status: %s\n", m.Status)
	writeStats(w, m)

	ops := table.NewWriter()
	ops.SetTitle("Placement")
	ops.AppendHeader(table.Row{"Op", "Opcode", "Node", "Cycle"})
	for _, op := range m.DFG.Ops() {
		node, cycle := "-", "-"
		if id, ok := m.Placement(op.ID); ok {
			node = m.Graph.Node(id).Name
			cycle = fmt.Sprint(m.Graph.Node(id).Cycle)
		}

		ops.AppendRow(table.Row{op.Name, op.Opcode, node, cycle})
	}

	fmt.Fprintln(w, ops.Render())
	fmt.Fprintln(w)

	vals := table.NewWriter()
	vals.SetTitle("Routes")
	vals.AppendHeader(table.Row{"Val", "Nodes", "Sink latency", "Path"})
	for _, v := range m.DFG.Vals() {
		if !m.IsRouted(v.ID) {
			vals.AppendRow(table.Row{v.Name, "-", "-", "unrouted"})
			continue
		}

		names := make([]string, 0, len(m.Route(v.ID)))
		for _, id := range m.Route(v.ID) {
			names = append(names, m.Graph.Node(id).String())
		}

		vals.AppendRow(table.Row{
			v.Name,
			len(names),
			fmt.Sprint(m.latency[v.ID]),
			strings.Join(names, " "),
		})
	}

	fmt.Fprintln(w, vals.Render())

	if len(issues) == 0 {
		fmt.Fprintln(w, "\n✓ No issues found")
		return
	}

	fmt.Fprintf(w, "\n⚠ Found %d issues:\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  [%s] %s\n", issue.Type, issue.Message)
	}
}

func writeStats(w io.Writer, m *Mapping) {
	s := m.Stats

	switch {
	case s.Batches > 0:
		fmt.Fprintf(w,
			"Cost: %.2f (previous %.2f), accept rate %.3f, T=%.4g, pfactor=%.4g, %d batches\n",
			s.Cost, s.PrevCost, s.AcceptRate, s.Temperature, s.PFactor, s.Batches)
	case s.Solutions > 0:
		fmt.Fprintf(w, "Objective: %d (lower bound %d, optimal %t), %d solutions\n",
			s.Objective, s.LowerBound, s.Optimal, s.Solutions)
	}

	fmt.Fprintf(w, "Elapsed: %s\n\n", s.Elapsed)
}
