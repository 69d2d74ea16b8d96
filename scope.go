package warden

import (
	"fmt"
	"strings"

	"github.com/danpasecinic/warden/internal/container"
	"github.com/danpasecinic/warden/internal/policy"
	"github.com/danpasecinic/warden/internal/scope"
)

type Scope = scope.Scope

const (
	Singleton = scope.Singleton
	Unscoped  = scope.Unscoped
)

type Stage = policy.Stage

const (
	Production  = policy.Production
	Development = policy.Development
)

type IsolationMode = policy.IsolationMode

const (
	IsolatedChildScope = policy.IsolatedChildScope
	FlattenedScope     = policy.FlattenedScope
)

type Tier = policy.Tier

const (
	Root       = policy.Root
	Transitive = policy.Transitive
)

type Via = policy.Via

const (
	ViaDeclared     = policy.ViaDeclared
	ViaDirectEdge   = policy.ViaDirectEdge
	ViaDeferredEdge = policy.ViaDeferredEdge
	ViaResolution   = policy.ViaResolution
)

type Decision = policy.Decision

const (
	Lazy  = policy.Lazy
	Eager = policy.Eager
)

type Reason = container.Reason

const (
	EagerPolicy = container.EagerPolicy
	OnDemand    = container.OnDemand
)

// Classification is the tier a binding was assigned, and the edge or
// resolution through which it was first observed.
type Classification = policy.Classification

// SingletonRecord describes one constructed singleton. Ordinals are unique
// per injector and increase in construction order.
type SingletonRecord = container.Record

func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "production", "prod":
		return Production, nil
	case "development", "dev":
		return Development, nil
	default:
		return Production, fmt.Errorf("unknown stage %q", s)
	}
}

func ParseIsolationMode(s string) (IsolationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "isolated", "isolated-child-scope":
		return IsolatedChildScope, nil
	case "flattened", "flattened-scope":
		return FlattenedScope, nil
	default:
		return IsolatedChildScope, fmt.Errorf("unknown isolation mode %q", s)
	}
}
