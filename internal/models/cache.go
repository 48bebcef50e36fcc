package models

// GeocodeCacheEntry is a cached address resolution, keyed by normalized address
type GeocodeCacheEntry struct {
	Key         string      `json:"key"`
	Coords      Coordinates `json:"coords"`
	DisplayName string      `json:"display_name"`
}

// AddressPair is an ordered origin/destination pair of normalized address keys
type AddressPair struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// DistanceCacheEntry represents a cached distance lookup between two addresses
type DistanceCacheEntry struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecs   float64 `json:"duration_secs"`
}

// Pair returns the lookup key of the entry
func (e DistanceCacheEntry) Pair() AddressPair {
	return AddressPair{Origin: e.Origin, Destination: e.Destination}
}
