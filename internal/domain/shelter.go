package domain

// Represents one known shelter from the directory document.
// A ShelterLocation is identified by its address string; Name is the
// placemark title when the document provides one and is display-only.
type ShelterLocation struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}
