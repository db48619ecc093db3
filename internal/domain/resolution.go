package domain

// Represents the nearest shelter found for one query.
// Origin and Destination carry the coordinates used for the estimate so a
// map surface can center on the shelter and draw the leg.
type ResolutionResult struct {
	Query       string          `json:"query"`
	Mode        TravelMode      `json:"mode"`
	Location    ShelterLocation `json:"location"`
	Estimate    TravelEstimate  `json:"estimate"`
	Origin      Coordinates     `json:"origin"`
	Destination Coordinates     `json:"destination"`
}
