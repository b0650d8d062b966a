package domain

import "fmt"

// LocationKind classifies a site in the redistribution network.
type LocationKind string

const (
	KindRetailer        LocationKind = "retailer"
	KindFoodBank        LocationKind = "food_bank"
	KindCompostFacility LocationKind = "compost_facility"
	KindWarehouse       LocationKind = "warehouse"
)

// Valid reports whether k is one of the known location kinds.
func (k LocationKind) Valid() bool {
	switch k {
	case KindRetailer, KindFoodBank, KindCompostFacility, KindWarehouse:
		return true
	}
	return false
}

// Location is immutable reference data loaded once per run.
type Location struct {
	ID         int
	Name       string
	Kind       LocationKind
	Coords     Coordinates
	CapacityKg float64
	City       string
}

// Validate checks the invariants the engine relies on.
func (l Location) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("validate location: invalid id %d", l.ID)
	}
	if !l.Kind.Valid() {
		return fmt.Errorf("validate location %d: unknown kind %q", l.ID, l.Kind)
	}
	if err := l.Coords.Validate(); err != nil {
		return fmt.Errorf("validate location %d: %w", l.ID, err)
	}
	return nil
}

// Registry is the read-only set of known locations for a run.
type Registry struct {
	locations []Location
	byID      map[int]int
}

func NewRegistry(locations []Location) *Registry {
	r := &Registry{
		locations: make([]Location, len(locations)),
		byID:      make(map[int]int, len(locations)),
	}
	copy(r.locations, locations)
	for i, l := range r.locations {
		r.byID[l.ID] = i
	}
	return r
}

func (r *Registry) Len() int { return len(r.locations) }

func (r *Registry) Get(id int) (Location, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Location{}, false
	}
	return r.locations[i], true
}

// OfKind returns locations of the given kind in load order.
func (r *Registry) OfKind(kind LocationKind) []Location {
	var out []Location
	for _, l := range r.locations {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// InCity filters locs to the given city; returns nil when none match.
func InCity(locs []Location, city string) []Location {
	var out []Location
	for _, l := range locs {
		if l.City == city {
			out = append(out, l)
		}
	}
	return out
}
