package engine

import (
	"fmt"
	"strings"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
)

// TransitionCandidate is one instance of a status change request together
// with what the completion check needs.
type TransitionCandidate struct {
	Instance entity.FormInstance
	Schema   entity.FormSchema
	Response *entity.FormResponse
}

// ValidateTransition decides whether every candidate may move to target.
// Moving to COMPLETED requires each instance to pass the completion check and
// each of its blocking dependencies to be COMPLETED already or to pass in the
// same batch. Any failure rejects the whole batch; the returned
// IncompleteError names every failing instance. graph may be nil when the
// caller has no dependency context; only completion is checked then.
func ValidateTransition(candidates []TransitionCandidate, target string, graph *Graph) error {
	if !entity.ValidFormStatus(target) {
		return Invalid("status", "unknown form status %q", target)
	}
	if len(candidates) == 0 {
		return Invalid("instance_ids", "at least one instance is required")
	}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.Instance.ID] {
			return Invalid("instance_ids", "duplicate instance %s", c.Instance.ID)
		}
		seen[c.Instance.ID] = true
	}
	if target != entity.FormStatusCompleted {
		return nil
	}

	failed := &IncompleteError{}
	ok := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		res := Evaluate(c.Schema, responsePayload(c.Response))
		if len(res.Missing) > 0 {
			failed.add(c.Instance.ID, "missing required fields: "+strings.Join(res.Missing, ", "))
		}
		if len(res.Invalid) > 0 {
			failed.add(c.Instance.ID, "invalid values: "+strings.Join(res.Invalid, ", "))
		}
		ok[c.Instance.ID] = res.Complete
	}

	if graph != nil {
		// a batch member only satisfies a dependency if it passes itself,
		// so iterate until no further member drops out
		for changed := true; changed; {
			changed = false
			for _, c := range candidates {
				if !ok[c.Instance.ID] {
					continue
				}
				i, found := graph.index[c.Instance.ID]
				if !found {
					continue
				}
				for _, d := range graph.blocking(i) {
					depID := graph.nodes[d].FormID
					if ok[depID] {
						continue
					}
					reason := fmt.Sprintf("blocked by %s (%s)", depID, graph.nodes[d].Status)
					if seen[depID] {
						reason = fmt.Sprintf("blocked by %s, which fails in this batch", depID)
					}
					failed.add(c.Instance.ID, reason)
					ok[c.Instance.ID] = false
					changed = true
					break
				}
			}
		}
	}

	if len(failed.InstanceIDs) == 0 {
		return nil
	}
	failed.InstanceIDs = inInputOrder(candidates, failed.InstanceIDs)
	return failed
}

func responsePayload(r *entity.FormResponse) entity.Payload {
	if r == nil {
		return nil
	}
	return r.Payload.Data()
}

func inInputOrder(candidates []TransitionCandidate, ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, c := range candidates {
		if want[c.Instance.ID] {
			out = append(out, c.Instance.ID)
		}
	}
	return out
}
