// Package logger builds the structured logger shared by every component of the worker.
package logger

import "github.com/google/wire"

// ProviderSet wires logger provider for dependency injection.
var ProviderSet = wire.NewSet(NewLogger)
