package domain

import "fmt"

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// LatLng formats coordinates as "lat,lng", the form used by
// query-string based map APIs.
func (c Coordinates) LatLng() string {
	return fmt.Sprintf("%.7f,%.7f", c.Lat, c.Lon)
}

// Valid reports whether both components are inside WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
