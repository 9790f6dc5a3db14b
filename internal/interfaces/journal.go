package interfaces

import "nado-trading-bot/internal/types"

// Journal is the audit trail of decisions and position lifecycle events.
type Journal interface {
	CloseHandler
	Decision(res types.DecisionResult)
	Opened(p types.Position)
}
