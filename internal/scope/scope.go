package scope

type Scope int

const (
	Singleton Scope = iota
	Unscoped
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Unscoped:
		return "unscoped"
	default:
		return "unknown"
	}
}

func (s Scope) Cached() bool {
	return s == Singleton
}
