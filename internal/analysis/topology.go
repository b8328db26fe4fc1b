package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/kinsim/internal/kinematics"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Report summarizes a mechanism's structure.
type Report struct {
	Bodies     int
	FreeBodies int
	Joints     int
	// Unknowns is the packed state length.
	Unknowns int
	// Equations counts joint equations plus one norm equation per free body.
	Equations   int
	ResidualDim int
	// Mobility is Unknowns − Equations. Revolute joints overcount, so this is
	// an estimate only.
	Mobility int

	Components [][]string
	Floating   []string
	Isolated   []string
}

// Analyze builds the body graph of sys and reports on it.
func Analyze(sys *kinematics.System) Report {
	bodies := sys.Bodies()
	joints := sys.Joints()

	r := Report{
		Bodies:      len(bodies),
		FreeBodies:  sys.FreeBodyCount(),
		Joints:      len(joints),
		Unknowns:    sys.Dim(),
		ResidualDim: sys.ResidualDim(),
	}
	r.Equations = r.FreeBodies
	for _, j := range joints {
		r.Equations += j.Dim()
	}
	r.Mobility = r.Unknowns - r.Equations

	g := simple.NewUndirectedGraph()
	byID := make(map[int64]*kinematics.Body, len(bodies))
	for _, b := range bodies {
		id := int64(b.Index())
		g.AddNode(simple.Node(id))
		byID[id] = b
	}
	for _, j := range joints {
		f1, f2 := j.Frames()
		u, v := int64(f1.Body().Index()), int64(f2.Body().Index())
		if u == v {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
	}

	for _, comp := range topo.ConnectedComponents(g) {
		names := make([]string, 0, len(comp))
		anchored := false
		for _, n := range comp {
			b := byID[n.ID()]
			names = append(names, b.Name)
			if !b.IsFree() {
				anchored = true
			}
		}
		sort.Sort(componentOrder{nodes: comp, names: names})
		r.Components = append(r.Components, names)

		if !anchored {
			r.Floating = append(r.Floating, names...)
		}
	}
	index := func(name string) int {
		b, _ := sys.Body(name)
		return b.Index()
	}
	sort.Slice(r.Components, func(i, j int) bool {
		return index(r.Components[i][0]) < index(r.Components[j][0])
	})

	for _, b := range bodies {
		if g.From(int64(b.Index())).Len() == 0 {
			r.Isolated = append(r.Isolated, b.Name)
		}
	}
	sort.Slice(r.Floating, func(i, j int) bool {
		return index(r.Floating[i]) < index(r.Floating[j])
	})

	return r
}

type componentOrder struct {
	nodes []graph.Node
	names []string
}

func (c componentOrder) Len() int           { return len(c.nodes) }
func (c componentOrder) Less(i, j int) bool { return c.nodes[i].ID() < c.nodes[j].ID() }
func (c componentOrder) Swap(i, j int) {
	c.nodes[i], c.nodes[j] = c.nodes[j], c.nodes[i]
	c.names[i], c.names[j] = c.names[j], c.names[i]
}

// Connected reports whether every body is reachable from every other.
func (r Report) Connected() bool {
	return len(r.Components) <= 1
}

// Warnings lists structural problems worth reporting before a run.
func (r Report) Warnings() []string {
	var out []string
	if len(r.Floating) > 0 {
		out = append(out, fmt.Sprintf("floating free bodies: %s", strings.Join(r.Floating, ", ")))
	}
	if r.Mobility < 0 {
		out = append(out, fmt.Sprintf("overconstrained: %d more equations than unknowns", -r.Mobility))
	}
	if r.FreeBodies == 0 {
		out = append(out, "no free bodies: nothing to solve")
	}
	return out
}

func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bodies: %d (%d free)  joints: %d\n", r.Bodies, r.FreeBodies, r.Joints)
	fmt.Fprintf(&sb, "unknowns: %d  equations: %d  residual: %d  mobility: %d\n",
		r.Unknowns, r.Equations, r.ResidualDim, r.Mobility)
	for i, c := range r.Components {
		fmt.Fprintf(&sb, "component %d: %s\n", i+1, strings.Join(c, ", "))
	}
	return sb.String()
}
