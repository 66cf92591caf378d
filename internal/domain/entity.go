package domain

import "time"

// EntityType classifies a legal actor.
type EntityType string

const (
	EntityTypePersonal    EntityType = "personal"
	EntityTypeBusiness    EntityType = "business"
	EntityTypeLLC         EntityType = "llc"
	EntityTypeCorporation EntityType = "corporation"
)

// Valid reports whether the entity type is one of the known values.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePersonal, EntityTypeBusiness, EntityTypeLLC, EntityTypeCorporation:
		return true
	}
	return false
}

// Entity is a legally distinct owner of accounts: a person or a business.
// Every account belongs to exactly one entity, and money crossing entity
// boundaries must be documented (see Transaction).
type Entity struct {
	ID               string
	Name             string
	Type             EntityType
	OwnerID          string
	EIN              string
	StateOfFormation string
	FormationDate    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
