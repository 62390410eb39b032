// Package mappers holds the pure, total conversion functions between
// the status/priority/type vocabularies of Huly, Vibe and Beads, plus
// the text parsers that extract cross-system identifiers from free-text
// descriptions. Everything here is deterministic and side-effect free so
// it may be called directly from inside a Durability Layer workflow
// without going through an activity.
package mappers

import "github.com/oculairmedia/huly-vibe-sync/internal/types"

// VibeStatus is Vibe's own status vocabulary.
type VibeStatus string

const (
	VibeTodo       VibeStatus = "todo"
	VibeInProgress VibeStatus = "inprogress"
	VibeInReview   VibeStatus = "inreview"
	VibeDone       VibeStatus = "done"
	VibeCancelled  VibeStatus = "cancelled"
)

// HulyToVibeStatus maps a Huly status onto the Vibe board vocabulary.
func HulyToVibeStatus(s types.Status) VibeStatus {
	switch s {
	case types.StatusBacklog, types.StatusTodo:
		return VibeTodo
	case types.StatusInProgress:
		return VibeInProgress
	case types.StatusInReview:
		return VibeInReview
	case types.StatusDone:
		return VibeDone
	case types.StatusCancelled:
		return VibeCancelled
	default:
		return VibeTodo
	}
}

// VibeToHulyStatus is the inverse of HulyToVibeStatus. It is a total
// function but is lossy in one direction only: Backlog and Todo both map
// to VibeTodo, and the canonical inverse of VibeTodo is Todo. So
// mapVibeToHuly(mapHulyToVibe(s)) = s holds for every Huly status except
// Backlog, which comes back as Todo.
func VibeToHulyStatus(s VibeStatus) types.Status {
	switch s {
	case VibeTodo:
		return types.StatusTodo
	case VibeInProgress:
		return types.StatusInProgress
	case VibeInReview:
		return types.StatusInReview
	case VibeDone:
		return types.StatusDone
	case VibeCancelled:
		return types.StatusCancelled
	default:
		return types.StatusTodo
	}
}

// BeadsStatusValue is Beads' closed status vocabulary.
type BeadsStatusValue string

const (
	BeadsOpen       BeadsStatusValue = "open"
	BeadsInProgress BeadsStatusValue = "in_progress"
	BeadsBlocked    BeadsStatusValue = "blocked"
	BeadsDeferred   BeadsStatusValue = "deferred"
	BeadsClosed     BeadsStatusValue = "closed"
)

// BeadsMapping is the (status value, optional label) pair produced by the
// Huly->Beads status mapping. Label is empty when the Huly status has
// no corresponding `huly:*` label (In Progress, Done map cleanly onto a
// Beads status with no extra label needed).
type BeadsMapping struct {
	Status BeadsStatusValue
	Label  string // e.g. "huly:backlog"; empty if none
}

// hulyToBeadsTable is the closed status-label vocabulary.
var hulyToBeadsTable = map[types.Status]BeadsMapping{
	types.StatusBacklog:    {Status: BeadsOpen, Label: "huly:backlog"},
	types.StatusTodo:       {Status: BeadsOpen, Label: "huly:todo"},
	types.StatusInProgress: {Status: BeadsInProgress},
	types.StatusInReview:   {Status: BeadsInProgress, Label: "huly:in-review"},
	types.StatusDone:       {Status: BeadsClosed},
	types.StatusCancelled:  {Status: BeadsClosed, Label: "huly:cancelled"},
}

// HulyToBeadsStatus produces the Huly->Beads value+label pair.
// Unknown/unset Huly statuses default to the Todo mapping.
func HulyToBeadsStatus(s types.Status) BeadsMapping {
	if m, ok := hulyToBeadsTable[s]; ok {
		return m
	}
	return hulyToBeadsTable[types.StatusTodo]
}

// beadsLabelToHulyStatus inverts the label half of hulyToBeadsTable. The
// status-label vocabulary is closed: unknown labels on a Beads issue
// are ignored by the reverse mapping, so BeadsToHulyStatus falls back to
// the value-only mapping below when no recognized label is present.
var beadsLabelToHulyStatus = map[string]types.Status{
	"huly:backlog":    types.StatusBacklog,
	"huly:todo":       types.StatusTodo,
	"huly:in-review":  types.StatusInReview,
	"huly:cancelled":  types.StatusCancelled,
}

// beadsValueToHulyStatus is the fallback used when no huly:* label is
// present on the Beads issue; it is necessarily lossy (open -> Todo rather
// than Backlog, closed -> Done rather than Cancelled) which is why the
// Beads direction makes no round-trip promise.
var beadsValueToHulyStatus = map[BeadsStatusValue]types.Status{
	BeadsOpen:       types.StatusTodo,
	BeadsInProgress: types.StatusInProgress,
	BeadsBlocked:    types.StatusInProgress,
	BeadsDeferred:   types.StatusBacklog,
	BeadsClosed:     types.StatusDone,
}

// BeadsToHulyStatus maps a Beads issue back to a Huly status, consulting
// labels first (closed vocabulary) and falling back to the status value.
func BeadsToHulyStatus(status BeadsStatusValue, labels []string) types.Status {
	for _, l := range labels {
		if hs, ok := beadsLabelToHulyStatus[l]; ok {
			return hs
		}
	}
	if hs, ok := beadsValueToHulyStatus[status]; ok {
		return hs
	}
	return types.StatusTodo
}
