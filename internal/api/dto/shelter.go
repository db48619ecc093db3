package dto

type ShelterResponse struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type ListSheltersResponse struct {
	Count    int               `json:"count"`
	Shelters []ShelterResponse `json:"shelters"`
	// LoadError is set when the directory could not be loaded at startup.
	LoadError string `json:"load_error,omitempty"`
}
