package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/raildispatch/internal/domain"
)

func twoStationLayout() *domain.Layout {
	l := domain.NewLayout()

	l.Places[1] = &domain.OperationPlace{ID: 1, Kind: domain.PlaceStation, IsManned: true}
	l.Places[2] = &domain.OperationPlace{ID: 2, Kind: domain.PlaceStation, IsManned: true}
	l.TrackStretches[1] = &domain.TrackStretch{ID: 1, FromID: 1, ToID: 2, NumberOfTracks: 1,
		Tracks: []domain.Track{{ID: 1, Direction: domain.DoubleDirected}}}
	l.DispatchStretches[1] = &domain.DispatchStretch{ID: 1, FromStation: 1, ToStation: 2, Segments: []domain.ID{1}}
	l.Trains[1] = &domain.Train{ID: 1, State: domain.TrainPlanned}
	l.Sections[1] = &domain.TrainSection{ID: 1, TrainID: 1, DispatchID: 1, Direction: domain.Forward}
	l.SectionsByTrain[1] = []domain.ID{1}

	return l
}

func hasAction(actions []ActionContext, a Action) bool {
	for _, ac := range actions {
		if ac.Action == a {
			return true
		}
	}

	return false
}

func TestLegalActionsNoneStateOffersRequestToDepartureOnly(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)

	depDispatcher := LegalActions(l, s, 1)
	assert.True(t, hasAction(depDispatcher, Request))

	arrDispatcher := LegalActions(l, s, 2)
	assert.False(t, hasAction(arrDispatcher, Request))
}

func TestLegalActionsRequestedOffersAcceptRejectToArrivalAndRevokeToDeparture(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)
	s.State = domain.DispatchRequested

	dep := LegalActions(l, s, 1)
	assert.True(t, hasAction(dep, Revoke))
	assert.False(t, hasAction(dep, Accept))

	arr := LegalActions(l, s, 2)
	assert.True(t, hasAction(arr, Accept))
	assert.True(t, hasAction(arr, Reject))
}

func TestLegalActionsTerminalTrainStateOffersNoDispatchActions(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)
	l.Train(1).State = domain.TrainCanceled

	dep := LegalActions(l, s, 1)
	assert.False(t, hasAction(dep, Request))
}

func TestLegalActionsSecondSectionRequiresPreviousDeparted(t *testing.T) {
	l := twoStationLayout()

	l.Places[3] = &domain.OperationPlace{ID: 3, Kind: domain.PlaceStation, IsManned: true}
	l.TrackStretches[2] = &domain.TrackStretch{ID: 2, FromID: 2, ToID: 3, NumberOfTracks: 1,
		Tracks: []domain.Track{{ID: 2, Direction: domain.DoubleDirected}}}
	l.DispatchStretches[2] = &domain.DispatchStretch{ID: 2, FromStation: 2, ToStation: 3, Segments: []domain.ID{2}}

	second := &domain.TrainSection{ID: 2, TrainID: 1, DispatchID: 2, Direction: domain.Forward, PreviousSectionID: 1}
	l.Sections[2] = second
	l.SectionsByTrain[1] = append(l.SectionsByTrain[1], 2)

	actions := LegalActions(l, second, 2)
	assert.Empty(t, actions, "second section must offer nothing while first section has not Departed")

	l.Section(1).State = domain.DispatchDeparted
	actions = LegalActions(l, second, 2)
	assert.True(t, hasAction(actions, Request))
}

func TestLegalActionsTrainTable(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)

	planned := LegalActions(l, s, 1)
	assert.True(t, hasAction(planned, Manned))
	assert.True(t, hasAction(planned, Canceled))

	l.Train(1).State = domain.TrainManned
	manned := LegalActions(l, s, 1)
	assert.False(t, hasAction(manned, Manned))
	assert.False(t, hasAction(manned, Canceled))
}

func TestLegalActionsUndoOffersOnlyAfterStateChange(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)

	assert.False(t, hasAction(LegalActions(l, s, 1), UndoTrainState))

	train := l.Train(1)
	train.RecordPreviousState()
	train.State = domain.TrainManned

	assert.True(t, hasAction(LegalActions(l, s, 1), UndoTrainState))
}

func TestLegalActionsClearOnlyWhenDepartedAndTrainCanceledOrAborted(t *testing.T) {
	l := twoStationLayout()
	s := l.Section(1)
	s.State = domain.DispatchDeparted

	assert.False(t, hasAction(LegalActions(l, s, 1), Clear))

	l.Train(1).State = domain.TrainAborted
	assert.True(t, hasAction(LegalActions(l, s, 1), Clear))
}
