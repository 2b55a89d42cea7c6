package engine

import (
	"fmt"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
)

// Node is one form instance in a project's dependency graph.
type Node struct {
	FormID       string   `json:"form_id"`
	FormName     string   `json:"form_name"`
	TemplateID   string   `json:"template_id"`
	Status       string   `json:"status"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Order        *int     `json:"order"`
	IsBlocking   bool     `json:"is_blocking"`
}

// Warning records a declared dependency that could not be resolved inside
// the project and was dropped from the graph.
type Warning struct {
	FormID            string `json:"form_id"`
	MissingTemplateID string `json:"missing_template_id"`
	Message           string `json:"message"`
}

// BuildOptions tunes graph construction.
type BuildOptions struct {
	// Strict turns unresolved dependencies into an IntegrityError instead
	// of a warning.
	Strict bool
}

// Graph is an immutable per-request dependency graph. Nodes live in an
// arena and edges are arena indices.
type Graph struct {
	nodes      []Node
	index      map[string]int
	deps       [][]int
	dependents [][]int
	warnings   []Warning
}

// Build derives the dependency graph of one project from its form instances
// and the completion requirements of their templates.
//
// Requirements are matched per instance on (template, instance phase) first
// and (template, any phase) second. A form without a requirement has no
// dependencies and gates its dependents.
func Build(instances []entity.FormInstance, requirements []entity.FormCompletionRequirement, opts BuildOptions) (*Graph, error) {
	g := &Graph{
		nodes:      make([]Node, len(instances)),
		index:      make(map[string]int, len(instances)),
		deps:       make([][]int, len(instances)),
		dependents: make([][]int, len(instances)),
	}

	byTemplate := make(map[string]int, len(instances))
	for i, inst := range instances {
		if _, dup := g.index[inst.ID]; dup {
			return nil, &IntegrityError{Message: "duplicate form instance", FormIDs: []string{inst.ID}}
		}
		if prev, dup := byTemplate[inst.TemplateID]; dup {
			return nil, &IntegrityError{
				Message: fmt.Sprintf("template %s instantiated more than once in project", inst.TemplateID),
				FormIDs: []string{instances[prev].ID, inst.ID},
			}
		}
		g.index[inst.ID] = i
		byTemplate[inst.TemplateID] = i
		g.nodes[i] = Node{
			FormID:     inst.ID,
			FormName:   inst.Name,
			TemplateID: inst.TemplateID,
			Status:     inst.Status,
			Order:      inst.Order,
			IsBlocking: true,
		}
	}

	reqs := newRequirementIndex(requirements)

	// forward edges
	for i, inst := range instances {
		req := reqs.lookup(inst)
		if req == nil {
			continue
		}
		g.nodes[i].IsBlocking = req.IsBlocking

		seen := make(map[int]bool, len(req.DependsOn))
		for _, ref := range req.DependsOn {
			j, ok := byTemplate[ref]
			if !ok {
				j, ok = g.index[ref]
			}
			if !ok {
				if opts.Strict {
					return nil, &IntegrityError{
						Message: fmt.Sprintf("form %s depends on template %s which has no instance in the project", inst.ID, ref),
						FormIDs: []string{inst.ID},
					}
				}
				g.warnings = append(g.warnings, Warning{
					FormID:            inst.ID,
					MissingTemplateID: ref,
					Message:           "declared dependency has no instance in this project; dropped",
				})
				continue
			}
			if j == i {
				return nil, &IntegrityError{Message: "form depends on itself", FormIDs: []string{inst.ID, inst.ID}}
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
		}
	}

	// single reverse pass; dependents come out in arena order
	for i, ds := range g.deps {
		for _, j := range ds {
			g.dependents[j] = append(g.dependents[j], i)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &IntegrityError{Message: "dependency cycle detected", FormIDs: cycle}
	}

	for i := range g.nodes {
		g.nodes[i].Dependencies = g.ids(g.deps[i])
		g.nodes[i].Dependents = g.ids(g.dependents[i])
	}
	return g, nil
}

type requirementIndex struct {
	exact map[string]*entity.FormCompletionRequirement
	first map[string]*entity.FormCompletionRequirement
}

func newRequirementIndex(requirements []entity.FormCompletionRequirement) requirementIndex {
	idx := requirementIndex{
		exact: make(map[string]*entity.FormCompletionRequirement, len(requirements)),
		first: make(map[string]*entity.FormCompletionRequirement, len(requirements)),
	}
	for i := range requirements {
		r := &requirements[i]
		idx.exact[r.TemplateID+"\x00"+r.PhaseID] = r
		if _, ok := idx.first[r.TemplateID]; !ok {
			idx.first[r.TemplateID] = r
		}
	}
	return idx
}

func (idx requirementIndex) lookup(inst entity.FormInstance) *entity.FormCompletionRequirement {
	phase := ""
	if inst.PhaseID != nil {
		phase = *inst.PhaseID
	}
	if phase != "" {
		if r, ok := idx.exact[inst.TemplateID+"\x00"+phase]; ok {
			return r
		}
	}
	if r, ok := idx.exact[inst.TemplateID+"\x00"]; ok {
		return r
	}
	// a phase-scoped requirement still applies to instances without a phase link
	if phase == "" {
		return idx.first[inst.TemplateID]
	}
	return nil
}

// ValidateRequirements checks template-level declarations on their own,
// before any project instantiates them. Edges of every phase-specific
// requirement are merged, so a cycle that only closes across phases is
// still rejected.
func ValidateRequirements(requirements []entity.FormCompletionRequirement) error {
	g := &Graph{index: make(map[string]int)}
	node := func(tpl string) int {
		if i, ok := g.index[tpl]; ok {
			return i
		}
		g.index[tpl] = len(g.nodes)
		g.nodes = append(g.nodes, Node{FormID: tpl, TemplateID: tpl})
		g.deps = append(g.deps, nil)
		return len(g.nodes) - 1
	}
	for _, r := range requirements {
		i := node(r.TemplateID)
		for _, ref := range r.DependsOn {
			if ref == r.TemplateID {
				return &IntegrityError{Message: "template depends on itself", FormIDs: []string{ref, ref}}
			}
			j := node(ref)
			g.deps[i] = append(g.deps[i], j)
		}
	}
	if cycle := g.findCycle(); cycle != nil {
		return &IntegrityError{Message: "dependency cycle detected between templates", FormIDs: cycle}
	}
	return nil
}

// findCycle runs a white/gray/black DFS over the dependency edges and
// returns the ids along the first cycle found, closed on its first id.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	stack := make([]int, 0, len(g.nodes))

	var visit func(n int) []int
	visit = func(n int) []int {
		color[n] = gray
		stack = append(stack, n)
		for _, d := range g.deps[n] {
			switch color[d] {
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == d {
						return append(append([]int{}, stack[k:]...), d)
					}
				}
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if c := visit(i); c != nil {
				return g.ids(c)
			}
		}
	}
	return nil
}

func (g *Graph) ids(idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = g.nodes[i].FormID
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns a copy of all nodes in input order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns the node for a form instance id.
func (g *Graph) Node(formID string) (Node, bool) {
	i, ok := g.index[formID]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Warnings returns the dependencies dropped during construction.
func (g *Graph) Warnings() []Warning {
	out := make([]Warning, len(g.warnings))
	copy(out, g.warnings)
	return out
}

// TopologicalOrder returns form ids so that every form follows all of its
// dependencies. Among forms that are ready at the same time, lower order
// hints come first, then forms without a hint, then input position.
func (g *Graph) TopologicalOrder() []string {
	indegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		indegree[i] = len(g.deps[i])
	}
	done := make([]bool, len(g.nodes))
	out := make([]string, 0, len(g.nodes))

	for len(out) < len(g.nodes) {
		pick := -1
		for i := range g.nodes {
			if done[i] || indegree[i] > 0 {
				continue
			}
			if pick == -1 || g.orderLess(i, pick) {
				pick = i
			}
		}
		if pick == -1 {
			// unreachable: Build rejects cycles
			break
		}
		done[pick] = true
		out = append(out, g.nodes[pick].FormID)
		for _, d := range g.dependents[pick] {
			indegree[d]--
		}
	}
	return out
}

func (g *Graph) orderLess(a, b int) bool {
	oa, ob := g.nodes[a].Order, g.nodes[b].Order
	switch {
	case oa != nil && ob != nil:
		if *oa != *ob {
			return *oa < *ob
		}
	case oa != nil:
		return true
	case ob != nil:
		return false
	}
	return a < b
}

// Ready returns the forms that are not yet completed and have no
// outstanding blocking dependency, in input order.
func (g *Graph) Ready() []Node {
	var out []Node
	for i, n := range g.nodes {
		if n.Status == entity.FormStatusCompleted || n.Status == entity.FormStatusCancelled {
			continue
		}
		if len(g.blocking(i)) == 0 {
			out = append(out, n)
		}
	}
	return out
}
