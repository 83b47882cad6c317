// Package di contains dependency injection tokens for the watch context.
package di

import (
	"github.com/fd1az/depositwatch/business/watch/app"
	"github.com/fd1az/depositwatch/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ReconcilerFactory = di.NewToken[*app.ReconcilerFactory]("watch.ReconcilerFactory")
)

// Helper functions for type-safe access
func GetReconcilerFactory(c di.ServiceRegistry) *app.ReconcilerFactory {
	return di.GetToken(c, ReconcilerFactory)
}
