package engine

import (
	"sort"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
)

// DependencyView is the dependency picture around one focal form.
type DependencyView struct {
	CurrentForm          Node   `json:"current_form"`
	BlockingDependencies []Node `json:"blocking_dependencies"`
	DependentForms       []Node `json:"dependent_forms"`
	CanProceed           bool   `json:"can_proceed"`
	NextInSequence       []Node `json:"next_in_sequence"`
}

// View computes the dependency view for formID. An id that is not in the
// graph yields a NotFoundError matching ErrFormNotInGraph.
func (g *Graph) View(formID string) (*DependencyView, error) {
	i, ok := g.index[formID]
	if !ok {
		return nil, &NotFoundError{Kind: kindGraphForm, ID: formID, Message: ErrFormNotInGraph.Error()}
	}

	blocking := g.blocking(i)
	return &DependencyView{
		CurrentForm:          g.nodes[i],
		BlockingDependencies: g.pick(blocking),
		DependentForms:       g.pick(g.dependents[i]),
		CanProceed:           len(blocking) == 0,
		NextInSequence:       g.pick(g.nextInSequence(i)),
	}, nil
}

// BlockingDependencies returns the prerequisites of formID that are blocking
// and not COMPLETED, in declaration order.
func (g *Graph) BlockingDependencies(formID string) ([]Node, error) {
	i, ok := g.index[formID]
	if !ok {
		return nil, &NotFoundError{Kind: kindGraphForm, ID: formID, Message: ErrFormNotInGraph.Error()}
	}
	return g.pick(g.blocking(i)), nil
}

// CanProceed reports whether formID has no outstanding blocking dependency.
func (g *Graph) CanProceed(formID string) (bool, error) {
	blocking, err := g.BlockingDependencies(formID)
	if err != nil {
		return false, err
	}
	return len(blocking) == 0, nil
}

func (g *Graph) blocking(i int) []int {
	var out []int
	for _, d := range g.deps[i] {
		n := g.nodes[d]
		if n.IsBlocking && n.Status != entity.FormStatusCompleted {
			out = append(out, d)
		}
	}
	return out
}

// nextInSequence returns the nodes whose order hint is strictly greater than
// the focal node's, ascending, with ties kept in arena order.
func (g *Graph) nextInSequence(i int) []int {
	focal := g.nodes[i].Order
	if focal == nil {
		return nil
	}
	var out []int
	for j, n := range g.nodes {
		if j == i || n.Order == nil {
			continue
		}
		if *n.Order > *focal {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return *g.nodes[out[a]].Order < *g.nodes[out[b]].Order
	})
	return out
}

func (g *Graph) pick(idx []int) []Node {
	out := make([]Node, len(idx))
	for k, i := range idx {
		out[k] = g.nodes[i]
	}
	return out
}
