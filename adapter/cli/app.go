package cli

import (
	"github.com/johnqh/subscription-lib/internal/subscription/application"
)

// App holds the CLI application dependencies.
type App struct {
	// Subscription orchestration service
	Service *application.Service

	// Current user (configured per environment)
	CurrentUserID string
	CurrentEmail  string
}

// NewApp creates a new CLI application around the subscription service.
func NewApp(service *application.Service) *App {
	return &App{Service: service}
}

// SetCurrentUser updates the active identity.
func (a *App) SetCurrentUser(userID, email string) {
	a.CurrentUserID = userID
	a.CurrentEmail = email
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
