// Package logger provides a singleton Zap logger with context-based scoping.
//
// Initialization (once, in main):
//
//	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
//	defer logger.Sync()
//
// In handlers and services, prefer the context-scoped logger:
//
//	log := logger.From(ctx)
//	log.Info("session created", logger.Username(u))
//
// The HTTP logging middleware injects a per-request logger carrying
// request_id, method and path, so From(ctx) picks those fields up for free.
package logger
