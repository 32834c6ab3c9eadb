package location

// Location is a saved delivery address.
type Location struct {
	ID        int64   `json:"id"`
	Label     string  `json:"label"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
