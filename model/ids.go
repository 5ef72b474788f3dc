package model

import "github.com/google/uuid"

// ProtocolOrderId is unique within a single protocol's emitted batch.
type ProtocolOrderId struct {
	ProtocolSignature string
	Ordinal           int
}

// PositionOrderId is a strict refinement of ProtocolOrderId, unique across
// an entire position. Minted by the Hub when it renames a position's
// ProtocolOrderIds into the cross-position aggregate.
type PositionOrderId struct {
	PositionID        uuid.UUID
	ProtocolSignature string
	Ordinal           int
}

func (id ProtocolOrderId) WithPosition(positionID uuid.UUID) PositionOrderId {
	return PositionOrderId{
		PositionID:        positionID,
		ProtocolSignature: id.ProtocolSignature,
		Ordinal:           id.Ordinal,
	}
}

// NewPositionID mints a time-ordered unique id for a newly created position.
func NewPositionID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the runtime's random source is broken;
		// falling back to v4 keeps the id unique even if not time-ordered.
		return uuid.New()
	}
	return id
}
