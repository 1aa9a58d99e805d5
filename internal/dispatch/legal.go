package dispatch

import "github.com/tonimelisma/raildispatch/internal/domain"

// role describes a dispatcher's relationship to a section, derived fresh on
// every call.
type role struct {
	isDeparture bool
	isArrival   bool
	isPass      bool
	passTarget  domain.ID
	passIndex   int // new CurrentTrackStretchIndex once this Pass is applied
	onLast      bool
}

// nextControlPoint scans forward from the section's current index for the
// next SignalControlledPlace waypoint, skipping any run of unsignalled
// junctions in between: crossing those needs no dispatcher action, since
// the capacity cascade already reserved the whole run when the section
// entered it, so a single Pass carries the section across all of them at
// once and lands on the next control point (or, if none remain, Arrive
// becomes available directly).
func nextControlPoint(l *domain.Layout, ds *domain.DispatchStretch, s *domain.TrainSection) (segmentIdx int, placeID domain.ID, ok bool) {
	endpoints := l.SegmentEndpoints(ds, s.Direction)

	for i := s.CurrentTrackStretchIndex; i < len(endpoints); i++ {
		place := l.Place(endpoints[i].To)
		if place != nil && place.IsSignalControlled() {
			return i, endpoints[i].To, true
		}
	}

	return 0, 0, false
}

func computeRole(l *domain.Layout, ds *domain.DispatchStretch, s *domain.TrainSection, dispatcherStation domain.ID) role {
	fromPlace, toPlace := ds.EndpointsFor(s.Direction)

	var r role

	if p := l.Place(fromPlace); p != nil {
		r.isDeparture = p.ControllingStationID() == dispatcherStation
	}

	if p := l.Place(toPlace); p != nil {
		r.isArrival = p.ControllingStationID() == dispatcherStation
	}

	idx, place, ok := nextControlPoint(l, ds, s)
	r.onLast = !ok

	if ok {
		if p := l.Place(place); p != nil && p.ControllingStationID() == dispatcherStation {
			r.isPass = true
			r.passTarget = place
			r.passIndex = idx + 1
		}
	}

	return r
}

// LegalActions is the pure function of (section, dispatcher) -> legal
// actions. It has no side effects and is shared verbatim between the
// executor's validation step and any UI/automation client that wants to
// know what it may offer.
func LegalActions(l *domain.Layout, s *domain.TrainSection, dispatcherStation domain.ID) []ActionContext {
	train := l.Train(s.TrainID)
	if train == nil {
		return nil
	}

	ds := l.DispatchStretchByID(s.DispatchID)
	if ds == nil {
		return nil
	}

	r := computeRole(l, ds, s, dispatcherStation)

	isFirst := s.IsFirst()

	prevDeparted := isFirst
	if !isFirst {
		prev := l.PreviousSection(s)
		prevDeparted = prev != nil && prev.State == domain.DispatchDeparted
	}

	var out []ActionContext

	if !train.State.IsTerminal() && prevDeparted {
		out = append(out, dispatchActions(s, r)...)
	}

	out = append(out, trainActions(s, train, isFirst)...)

	if train.CanUndo() {
		out = append(out, ActionContext{Action: UndoTrainState, SectionID: s.ID, Label: "Undo " + train.State.String()})
	}

	if s.State == domain.DispatchDeparted && (train.State == domain.TrainCanceled || train.State == domain.TrainAborted) {
		out = append(out, ActionContext{Action: Clear, SectionID: s.ID, Label: "Clear"})
	}

	return out
}

func dispatchActions(s *domain.TrainSection, r role) []ActionContext {
	var out []ActionContext

	switch s.State {
	case domain.DispatchNone, domain.DispatchRejected, domain.DispatchRevoked:
		if r.isDeparture {
			out = append(out, ActionContext{Action: Request, SectionID: s.ID, Label: "Request"})
		}
	case domain.DispatchRequested:
		if r.isDeparture {
			out = append(out, ActionContext{Action: Revoke, SectionID: s.ID, Label: "Revoke"})
		}

		if r.isArrival {
			out = append(out,
				ActionContext{Action: Accept, SectionID: s.ID, Label: "Accept"},
				ActionContext{Action: Reject, SectionID: s.ID, Label: "Reject"},
			)
		}
	case domain.DispatchAccepted:
		if r.isDeparture {
			out = append(out,
				ActionContext{Action: Depart, SectionID: s.ID, Label: "Depart"},
				ActionContext{Action: Revoke, SectionID: s.ID, Label: "Revoke"},
			)
		}
	case domain.DispatchDeparted:
		if !r.onLast && r.isPass {
			out = append(out, ActionContext{Action: Pass, SectionID: s.ID, PassTarget: r.passTarget, Label: "Pass"})
		}

		if r.onLast && r.isArrival {
			out = append(out, ActionContext{Action: Arrive, SectionID: s.ID, Label: "Arrive"})
		}
	}

	return out
}

func trainActions(s *domain.TrainSection, train *domain.Train, isFirst bool) []ActionContext {
	if isFirst {
		if train.State == domain.TrainPlanned {
			return []ActionContext{
				{Action: Manned, SectionID: s.ID, Label: "Manned"},
				{Action: Canceled, SectionID: s.ID, Label: "Canceled"},
			}
		}

		return nil
	}

	if train.State == domain.TrainRunning {
		return []ActionContext{{Action: Aborted, SectionID: s.ID, Label: "Aborted"}}
	}

	return nil
}
