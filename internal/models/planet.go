package models

type Planet struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	OwnerID           *int64  `json:"owner_id"`
	GalaxyID          int64   `json:"galaxy_id"`
	Sector            int64   `json:"sector"`
	Quadrant          int64   `json:"quadrant"`
	PlanetNumber      int64   `json:"planet_number"`
	Richness          float64 `json:"richness"`
	Home              bool    `json:"home"`
	SpecialLocationID *int64  `json:"special_location_id"`
}

func (p *Planet) IsOwnedBy(userID int64) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}
