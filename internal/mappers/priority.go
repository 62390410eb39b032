package mappers

import "github.com/oculairmedia/huly-vibe-sync/internal/types"

// BeadsPriority is Beads' numeric priority scale (0=highest .. 4=lowest).
type BeadsPriority int

// priorityToBeadsTable: Urgent->0, High->1, Medium->2, Low->3, None->4.
var priorityToBeadsTable = map[types.Priority]BeadsPriority{
	types.PriorityUrgent: 0,
	types.PriorityHigh:   1,
	types.PriorityMedium: 2,
	types.PriorityLow:    3,
	types.PriorityNone:   4,
}

var beadsToPriorityTable = map[BeadsPriority]types.Priority{
	0: types.PriorityUrgent,
	1: types.PriorityHigh,
	2: types.PriorityMedium,
	3: types.PriorityLow,
	4: types.PriorityNone,
}

// PriorityToBeads converts a Huly priority to its Beads numeric equivalent.
func PriorityToBeads(p types.Priority) BeadsPriority {
	if v, ok := priorityToBeadsTable[p]; ok {
		return v
	}
	return priorityToBeadsTable[types.PriorityMedium]
}

// PriorityFromBeads is the inverse of PriorityToBeads; unlike status,
// priority survives the round trip losslessly.
func PriorityFromBeads(p BeadsPriority) types.Priority {
	if v, ok := beadsToPriorityTable[p]; ok {
		return v
	}
	return types.PriorityMedium
}
