package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")

	// SessionKeyUsername is written by the identity provider once the caller has
	// signed in. Holds follow the username across sessions.
	SessionKeyUsername = sessionKey("username")
)

func (s sessionKey) String() string {
	return string(s)
}

type contextKey string

const loggerContextKey = contextKey("logger")

func (app *Application) ownerKey(r *http.Request) domain.OwnerKey {
	return domain.OwnerKey{
		SessionID: app.sessionManager.Token(r.Context()),
		Username:  app.sessionManager.GetString(r.Context(), SessionKeyUsername.String()),
	}
}

func (app *Application) contextSetLogger(r *http.Request, logger *slog.Logger) *http.Request {
	ctx := context.WithValue(r.Context(), loggerContextKey, logger)
	return r.WithContext(ctx)
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}
