package broker

import (
	"errors"

	"github.com/tonimelisma/raildispatch/internal/metrics"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// recordDenial labels a failed Execute call for the capacity-denials
// counter. ActionNotAvailable and InvalidPassTarget are policy/usage errors,
// not capacity denials, and are not counted here.
func recordDenial(reg *metrics.Registry, err error) {
	switch {
	case errors.Is(err, railerr.ErrNoCapacity):
		reg.CapacityDenials.WithLabelValues("no_capacity").Inc()
	case errors.Is(err, railerr.ErrDirectionConflict):
		reg.CapacityDenials.WithLabelValues("direction_conflict").Inc()
	}
}

// isUnrecoverable reports whether err leaves the broker unable to guarantee
// its in-memory state matches the durable log ("if rollback is impossible,
// the broker enters a permanent refused state"). The executor always rolls
// back any staged occupancy before returning a
// persistence error, so in practice only a corrupt-state detection (which
// should never surface outside restore) reaches this path; it is kept as
// the documented fatal escape hatch rather than assumed unreachable.
func isUnrecoverable(err error) bool {
	return errors.Is(err, railerr.ErrCorruptState)
}
