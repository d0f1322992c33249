package md

import (
	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/facade"
)

// TrajectoryWriter appends one frame at each dump interval. A nil writer is
// a valid no-op — trajectory persistence lives outside this package's
// scope (§1).
type TrajectoryWriter interface {
	Append(step int, sys *chem.System, energy float64) error
}

// Optimizer relaxes the initial geometry when Config.Opt is set, before the
// first velocity sample is drawn.
type Optimizer interface {
	Optimize(sys *chem.System, energy *facade.Facade) (chem.Geometry, error)
}

// UniqueFilter backs the unique/rmsd options: CheckAndAdd reports whether
// sys's current geometry is structurally new relative to everything seen
// so far, recording it if so.
type UniqueFilter interface {
	CheckAndAdd(sys *chem.System) bool
}
