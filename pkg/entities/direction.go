package entities

// Direction tells whether a message was written by the account owner.
type Direction string

const (
	// DirectionReceived marks a message written by anyone but the account owner,
	// it is also used for every message when the owner could not be inferred
	DirectionReceived Direction = "received"

	// DirectionSent marks a message written by the account owner
	DirectionSent Direction = "sent"
)
