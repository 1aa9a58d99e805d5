package dispatch

import (
	"context"

	"github.com/tonimelisma/raildispatch/internal/domain"
)

type trainEventRecord struct {
	kind    string
	trainID domain.ID
	callID  domain.ID
	state   domain.TrainState
	trackID domain.ID
	at      int64
}

type fakeTrainSink struct {
	records          []trainEventRecord
	failNext         bool
	failNextObserved bool
}

func (f *fakeTrainSink) RecordState(_ context.Context, trainID domain.ID, state domain.TrainState, at int64) error {
	if f.failNext {
		f.failNext = false
		return errFakeSink
	}

	f.records = append(f.records, trainEventRecord{kind: "State", trainID: trainID, state: state, at: at})

	return nil
}

func (f *fakeTrainSink) RecordObservedArrival(_ context.Context, callID domain.ID, at int64) error {
	if f.failNextObserved {
		f.failNextObserved = false
		return errFakeSink
	}

	f.records = append(f.records, trainEventRecord{kind: "ObservedArrival", callID: callID, at: at})
	return nil
}

func (f *fakeTrainSink) RecordObservedDeparture(_ context.Context, callID domain.ID, at int64) error {
	if f.failNextObserved {
		f.failNextObserved = false
		return errFakeSink
	}

	f.records = append(f.records, trainEventRecord{kind: "ObservedDeparture", callID: callID, at: at})
	return nil
}

func (f *fakeTrainSink) RecordTrackChange(_ context.Context, callID domain.ID, trackID domain.ID, at int64) error {
	f.records = append(f.records, trainEventRecord{kind: "TrackChange", callID: callID, trackID: trackID, at: at})
	return nil
}

type dispatchEventRecord struct {
	kind      string
	sectionID domain.ID
	state     domain.DispatchState
	index     *int
	signal    domain.ID
	at        int64
}

type fakeDispatchSink struct {
	records  []dispatchEventRecord
	failNext bool
}

func (f *fakeDispatchSink) RecordState(_ context.Context, sectionID domain.ID, newState domain.DispatchState, index *int, at int64) error {
	if f.failNext {
		f.failNext = false
		return errFakeSink
	}

	f.records = append(f.records, dispatchEventRecord{kind: "State", sectionID: sectionID, state: newState, index: index, at: at})

	return nil
}

func (f *fakeDispatchSink) RecordPass(_ context.Context, sectionID domain.ID, signalPlaceID domain.ID, newIndex int, at int64) error {
	if f.failNext {
		f.failNext = false
		return errFakeSink
	}

	idx := newIndex
	f.records = append(f.records, dispatchEventRecord{kind: "Pass", sectionID: sectionID, signal: signalPlaceID, index: &idx, at: at})

	return nil
}

type fakeClock struct {
	t int64
}

func (c *fakeClock) Now(scheduled *int64) int64 {
	if scheduled != nil {
		return *scheduled
	}

	c.t++

	return c.t
}

var errFakeSink = fakeSinkError("fake sink failure")

type fakeSinkError string

func (e fakeSinkError) Error() string { return string(e) }
