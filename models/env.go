package models

import (
	"log/slog"
)

// Env is the environment shared by HTTP handlers.
type Env struct {
	Storage Storage
	Logger  *slog.Logger
}

func (e *Env) Log() *slog.Logger {
	return e.Logger
}
