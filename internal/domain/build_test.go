package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStationInput builds the S1 happy-path layout: A(Station)-AB-B(Station).
func twoStationInput(t *testing.T) BuildInput {
	t.Helper()

	depart := int64(1000)
	arrive := int64(2000)

	return BuildInput{
		Places: []OperationPlace{
			{ID: 1, Name: "A", Kind: PlaceStation, IsManned: true, Tracks: []StationTrack{{ID: 1, Number: "1"}}},
			{ID: 2, Name: "B", Kind: PlaceStation, IsManned: true, Tracks: []StationTrack{{ID: 2, Number: "1"}}},
		},
		TrackStretches: []TrackStretch{
			{ID: 1, FromID: 1, ToID: 2, NumberOfTracks: 1, Tracks: []Track{{ID: 1, Direction: DoubleDirected}}},
		},
		DispatchStretches: []DispatchStretchSpec{
			{ID: 1, FromStationID: 1, ToStationID: 2},
		},
		Trains: []Train{
			{ID: 1, Company: "T", Identity: Identity{Prefix: "IC", Number: "1"}, State: TrainPlanned},
		},
		Calls: []TrainStationCall{
			{ID: 1, TrainID: 1, AtPlace: 1, ScheduledDeparture: &depart},
			{ID: 2, TrainID: 1, AtPlace: 2, ScheduledArrival: &arrive},
		},
	}
}

func TestBuildHappyPath(t *testing.T) {
	layout, err := Build(twoStationInput(t))
	require.NoError(t, err)

	require.Len(t, layout.Sections, 1)

	var section *TrainSection
	for _, s := range layout.Sections {
		section = s
	}

	assert.True(t, section.IsFirst())
	assert.Equal(t, ID(1), section.TrainID)
	assert.Equal(t, []ID{1}, layout.Segments(section))

	call1 := layout.Call(1)
	assert.False(t, call1.IsArrival)
	assert.True(t, call1.IsDeparture)

	call2 := layout.Call(2)
	assert.True(t, call2.IsArrival)
	assert.False(t, call2.IsDeparture)
}

func TestBuildAssignsMonotonicIDsWhenUnset(t *testing.T) {
	in := twoStationInput(t)
	in.Trains[0].ID = 0

	layout, err := Build(in)
	require.NoError(t, err)

	var train *Train
	for _, tr := range layout.Trains {
		train = tr
	}

	assert.NotZero(t, train.ID)
}

func TestBuildFailsOnMissingPlaceReference(t *testing.T) {
	in := twoStationInput(t)
	in.TrackStretches[0].ToID = 999

	_, err := Build(in)
	assert.Error(t, err)
}

func TestBuildFailsOnNoPath(t *testing.T) {
	in := twoStationInput(t)
	// Disconnect: remove the only track stretch.
	in.TrackStretches = nil

	_, err := Build(in)
	assert.Error(t, err)
}

func TestBuildLinksSectionChain(t *testing.T) {
	mid := int64(1500)

	in := BuildInput{
		Places: []OperationPlace{
			{ID: 1, Name: "A", Kind: PlaceStation, IsManned: true},
			{ID: 2, Name: "B", Kind: PlaceStation, IsManned: true},
			{ID: 3, Name: "C", Kind: PlaceStation, IsManned: true},
		},
		TrackStretches: []TrackStretch{
			{ID: 1, FromID: 1, ToID: 2, NumberOfTracks: 1, Tracks: []Track{{ID: 1, Direction: DoubleDirected}}},
			{ID: 2, FromID: 2, ToID: 3, NumberOfTracks: 1, Tracks: []Track{{ID: 2, Direction: DoubleDirected}}},
		},
		DispatchStretches: []DispatchStretchSpec{
			{ID: 1, FromStationID: 1, ToStationID: 2},
			{ID: 2, FromStationID: 2, ToStationID: 3},
		},
		Trains: []Train{{ID: 1, State: TrainPlanned}},
		Calls: []TrainStationCall{
			{ID: 1, TrainID: 1, AtPlace: 1, ScheduledDeparture: timePtr(1000)},
			{ID: 2, TrainID: 1, AtPlace: 2, ScheduledArrival: timePtr(1400), ScheduledDeparture: &mid},
			{ID: 3, TrainID: 1, AtPlace: 3, ScheduledArrival: timePtr(2000)},
		},
	}

	layout, err := Build(in)
	require.NoError(t, err)
	require.Len(t, layout.Sections, 2)

	ids := layout.SectionsByTrain[1]
	require.Len(t, ids, 2)

	first := layout.Section(ids[0])
	second := layout.Section(ids[1])

	assert.True(t, first.IsFirst())
	assert.False(t, second.IsFirst())
	assert.Equal(t, first.ID, second.PreviousSectionID)
}

// TestBuildSectionIDsAreDeterministicAcrossMultipleTrains guards ID
// stability across restarts: building the same multi-train input
// repeatedly must assign identical section IDs every time, since restore
// rebuilds the layout fresh and matches event-log records by ID.
func TestBuildSectionIDsAreDeterministicAcrossMultipleTrains(t *testing.T) {
	buildInput := func() BuildInput {
		return BuildInput{
			Places: []OperationPlace{
				{ID: 1, Name: "A", Kind: PlaceStation, IsManned: true},
				{ID: 2, Name: "B", Kind: PlaceStation, IsManned: true},
			},
			TrackStretches: []TrackStretch{
				{ID: 1, FromID: 1, ToID: 2, NumberOfTracks: 2, Tracks: []Track{
					{ID: 1, Direction: DoubleDirected}, {ID: 2, Direction: DoubleDirected},
				}},
			},
			DispatchStretches: []DispatchStretchSpec{{ID: 1, FromStationID: 1, ToStationID: 2}},
			Trains: []Train{
				{ID: 1, State: TrainPlanned},
				{ID: 2, State: TrainPlanned},
				{ID: 3, State: TrainPlanned},
				{ID: 4, State: TrainPlanned},
				{ID: 5, State: TrainPlanned},
			},
			Calls: []TrainStationCall{
				{ID: 1, TrainID: 1, AtPlace: 1, ScheduledDeparture: timePtr(1000)},
				{ID: 2, TrainID: 1, AtPlace: 2, ScheduledArrival: timePtr(2000)},
				{ID: 3, TrainID: 2, AtPlace: 1, ScheduledDeparture: timePtr(1100)},
				{ID: 4, TrainID: 2, AtPlace: 2, ScheduledArrival: timePtr(2100)},
				{ID: 5, TrainID: 3, AtPlace: 1, ScheduledDeparture: timePtr(1200)},
				{ID: 6, TrainID: 3, AtPlace: 2, ScheduledArrival: timePtr(2200)},
				{ID: 7, TrainID: 4, AtPlace: 1, ScheduledDeparture: timePtr(1300)},
				{ID: 8, TrainID: 4, AtPlace: 2, ScheduledArrival: timePtr(2300)},
				{ID: 9, TrainID: 5, AtPlace: 1, ScheduledDeparture: timePtr(1400)},
				{ID: 10, TrainID: 5, AtPlace: 2, ScheduledArrival: timePtr(2400)},
			},
		}
	}

	sectionIDsByTrain := func(l *Layout) map[ID]ID {
		out := make(map[ID]ID, len(l.SectionsByTrain))
		for trainID, ids := range l.SectionsByTrain {
			require.Len(t, ids, 1)
			out[trainID] = ids[0]
		}

		return out
	}

	first, err := Build(buildInput())
	require.NoError(t, err)

	want := sectionIDsByTrain(first)

	for i := 0; i < 20; i++ {
		l, err := Build(buildInput())
		require.NoError(t, err)

		assert.Equal(t, want, sectionIDsByTrain(l))
	}
}

func timePtr(v int64) *int64 { return &v }
