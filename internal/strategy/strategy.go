package strategy

import (
	"fmt"
	"strings"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

// Kind names a strategy implementation. The set is closed.
type Kind string

const (
	KindSuccessive Kind = "successive"
)

// New resolves the strategy named by spec.Strategy.
func New(spec types.TradingSpec) (interfaces.Decider, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(spec.Strategy)))
	if kind == "" {
		kind = KindSuccessive
	}

	switch kind {
	case KindSuccessive:
		return NewSuccessive(spec), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", spec.Strategy)
	}
}
