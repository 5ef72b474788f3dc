package model

// PositionSpec is immutable after creation.
type PositionSpec struct {
	Asset    string
	Side     Side
	SizeUSDT float64
}

// ProtocolType groups protocols across which allocation is distributed
// equally.
type ProtocolType int

const (
	ProtocolMomentum ProtocolType = iota
	ProtocolTakeProfit
	ProtocolStopLoss
	ProtocolStopEntry
)

func (t ProtocolType) String() string {
	switch t {
	case ProtocolMomentum:
		return "Momentum"
	case ProtocolTakeProfit:
		return "TakeProfit"
	case ProtocolStopLoss:
		return "StopLoss"
	case ProtocolStopEntry:
		return "StopEntry"
	default:
		return "Unknown"
	}
}
