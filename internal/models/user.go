package models

import "time"

type User struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	FactionID          int64     `json:"faction_id"`
	PrimaryResource    float64   `json:"primary_resource"`
	SecondaryResource  float64   `json:"secondary_resource"`
	AllianceID         *int64    `json:"alliance_id"`
	Points             float64   `json:"points"`
	HomePlanetID       *int64    `json:"home_planet_id"`
	LastResourceUpdate time.Time `json:"last_resource_update"`
}

// SameAlliance is true only when both users belong to the same non-null alliance.
func (u *User) SameAlliance(other *User) bool {
	if u.AllianceID == nil || other.AllianceID == nil {
		return false
	}
	return *u.AllianceID == *other.AllianceID
}

type ObtainedUpgrade struct {
	UserID    int64 `json:"user_id"`
	UpgradeID int64 `json:"upgrade_id"`
	Level     int   `json:"level"`
}
