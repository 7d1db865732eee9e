package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// OrgAggregateRoot extends BaseAggregateRoot with organization scoping.
// Every financial record in the pipeline is owned by exactly one organization.
type OrgAggregateRoot struct {
	BaseAggregateRoot
	OrgID     uuid.UUID
	CreatedBy *uuid.UUID
}

// NewOrgAggregateRoot creates a new organization-scoped aggregate root
func NewOrgAggregateRoot(orgID uuid.UUID) OrgAggregateRoot {
	return OrgAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		OrgID:             orgID,
	}
}

// NewOrgAggregateRootWithCreator creates a new org-scoped aggregate root with creator info
func NewOrgAggregateRootWithCreator(orgID, createdBy uuid.UUID) OrgAggregateRoot {
	return OrgAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		OrgID:             orgID,
		CreatedBy:         &createdBy,
	}
}

// SetCreatedBy sets the creator user ID
func (o *OrgAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	o.CreatedBy = &userID
}
