package phaseengine

// conflictResolution decides which side of a mapped issue wins a cycle:
// if only one side changed since last-seen, apply that side; if both
// changed, the greater server-reported timestamp wins, and Huly wins
// ties. lastSeenHuly/lastSeenBeads are the engine's
// last-seen-by-engine watermarks (Issue.HulyModifiedAt/BeadsModifiedAt);
// currentHuly/currentBeads are this cycle's observed values.
type conflictResolution struct {
	ApplyHulyToBeads bool
	ApplyBeadsToHuly bool
}

func resolveConflict(lastSeenHuly, currentHuly, lastSeenBeads, currentBeads int64) conflictResolution {
	hulyChanged := currentHuly != lastSeenHuly
	beadsChanged := currentBeads != lastSeenBeads

	switch {
	case hulyChanged && !beadsChanged:
		return conflictResolution{ApplyHulyToBeads: true}
	case beadsChanged && !hulyChanged:
		return conflictResolution{ApplyBeadsToHuly: true}
	case hulyChanged && beadsChanged:
		if currentHuly >= currentBeads { // ties: Huly wins
			return conflictResolution{ApplyHulyToBeads: true}
		}
		return conflictResolution{ApplyBeadsToHuly: true}
	default:
		return conflictResolution{}
	}
}
