package dto

type ResolveRequest struct {
	Address string `json:"address"`
	Mode    string `json:"mode"`
}

type CoordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type ResolveResponse struct {
	Query           string              `json:"query"`
	Mode            string              `json:"mode"`
	Shelter         ShelterResponse     `json:"shelter"`
	DistanceMeters  int                 `json:"distance_meters"`
	DurationSeconds int                 `json:"duration_seconds"`
	DurationText    string              `json:"duration_text"`
	Origin          CoordinatesResponse `json:"origin"`
	Destination     CoordinatesResponse `json:"destination"`
	// Directions and ETA are the two display lines of the widget.
	Directions string `json:"directions"`
	ETA        string `json:"eta"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
