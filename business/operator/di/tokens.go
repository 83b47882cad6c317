// Package di contains dependency injection tokens for the operator context.
package di

import (
	"github.com/fd1az/depositwatch/business/operator/app"
	"github.com/fd1az/depositwatch/business/operator/infra/telegram"
	"github.com/fd1az/depositwatch/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("operator.Orchestrator")
	Bot          = di.NewToken[*telegram.Bot]("operator.Bot")
)

// Private dependency tokens - internal to operator module
var (
	Notifier     = di.NewToken[app.Notifier]("operator:notifier")
	SessionStore = di.NewToken[app.SessionStore]("operator:sessionStore")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetBot(c di.ServiceRegistry) *telegram.Bot {
	return di.GetToken(c, Bot)
}

func GetNotifier(c di.ServiceRegistry) app.Notifier {
	return di.GetToken(c, Notifier)
}

func GetSessionStore(c di.ServiceRegistry) app.SessionStore {
	return di.GetToken(c, SessionStore)
}
