package container

import "time"

type Reason int

const (
	// EagerPolicy marks instances built during the build pass.
	EagerPolicy Reason = iota
	// OnDemand marks instances built by a resolve after the build pass.
	OnDemand
)

func (r Reason) String() string {
	switch r {
	case EagerPolicy:
		return "eager-policy"
	case OnDemand:
		return "on-demand"
	default:
		return "unknown"
	}
}

type Record struct {
	Key      string
	Instance any
	Ordinal  uint64
	Reason   Reason
	Duration time.Duration
	At       time.Time
}
