package domain

// PlaceKind is the sum-type discriminant for OperationPlace. The executor
// and capacity manager switch on Kind explicitly rather than relying on an
// open class hierarchy.
type PlaceKind int

// OperationPlace variants.
const (
	PlaceStation PlaceKind = iota
	PlaceSignalControlled
	PlaceOther
)

// String renders the kind for logging.
func (k PlaceKind) String() string {
	switch k {
	case PlaceStation:
		return "station"
	case PlaceSignalControlled:
		return "signal_controlled"
	case PlaceOther:
		return "other"
	default:
		return "unknown"
	}
}

// StationTrack is a track number/platform owned by an OperationPlace.
type StationTrack struct {
	ID            ID
	Number        string // track number / platform designation
	MaxLength     *int64 // nullable
	IsMainTrack   bool
	DisplayOrder  int
	PlatformLenM  *int64 // nullable, meters
}

// OperationPlace is a point on the layout graph: a Station, a
// SignalControlledPlace, or an OtherPlace. Fields are grouped by which
// variant(s) they apply to rather than split into separate types per kind.
type OperationPlace struct {
	// Common to all variants.
	ID        ID
	Name      string
	Signature string // short display signature
	Kind      PlaceKind
	Tracks    []StationTrack

	// Station only: does this station have a dispatcher, and is it
	// authoritative for its own arrivals/departures.
	IsManned bool

	// SignalControlledPlace only: the station whose dispatcher controls
	// this signal post. Zero/unset for all other kinds.
	ControlledByStationID ID

	// SignalControlledPlace and OtherPlace: whether this place is a
	// junction. For OtherPlace, IsJunction=true enables the cascade rule.
	IsJunction bool
}

// IsStation reports whether p is a Station.
func (p *OperationPlace) IsStation() bool { return p.Kind == PlaceStation }

// IsSignalControlled reports whether p is a SignalControlledPlace.
func (p *OperationPlace) IsSignalControlled() bool { return p.Kind == PlaceSignalControlled }

// IsOtherPlace reports whether p is an unsignalled OtherPlace.
func (p *OperationPlace) IsOtherPlace() bool { return p.Kind == PlaceOther }

// ControllingStationID returns the ID of the station whose dispatcher
// controls this place: the place itself if it is a Station (manned or not), the
// back-referenced station if it is a SignalControlledPlace, or zero
// otherwise (an OtherPlace has no dispatcher).
func (p *OperationPlace) ControllingStationID() ID {
	switch p.Kind {
	case PlaceStation:
		return p.ID
	case PlaceSignalControlled:
		return p.ControlledByStationID
	default:
		return 0
	}
}

// CascadeEligible reports whether occupying a track stretch ending at this
// place should recursively occupy the place's other outgoing stretches:
// true only for a junction-typed OtherPlace.
func (p *OperationPlace) CascadeEligible() bool {
	return p.Kind == PlaceOther && p.IsJunction
}

// TerminatesCascade reports whether reaching this place during a cascade
// walk should stop further propagation: any Station or SignalControlledPlace,
// or a non-junction OtherPlace.
func (p *OperationPlace) TerminatesCascade() bool {
	return !p.CascadeEligible()
}
