// Package logger provides a singleton Zap logger with context-based scoping.
//
// A single global instance is initialized once with Init(). Middleware can
// attach a request-scoped logger (request_id, user_id, ...) to the context
// and any layer below retrieves it with From(ctx) without caring whether the
// middleware ran.
//
// Initialization (once, in main.go):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// In controllers/services:
//
//	log := logger.From(ctx)
//	log.Info("credential refreshed", logger.UserID(userID))
package logger
