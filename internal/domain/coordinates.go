package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (latitude, longitude) in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lat, lon] for map rendering.
func (c Coordinates) LatLon() []float64 { return []float64{c.Lat, c.Lon} }

// Validate reports coordinates outside the WGS84 range or non-finite values.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("validate coordinates: latitude %v out of range [-90, 90]", c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("validate coordinates: longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}
