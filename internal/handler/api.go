package handler

import (
	"github.com/droplog/internal/service"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	tracker *service.TrackerService
}

// NewAPI constructs a handler set around the tracker engine.
func NewAPI(tracker *service.TrackerService) *API {
	return &API{tracker: tracker}
}

// Tracker exposes the underlying engine, mainly for wiring subscriptions.
func (a *API) Tracker() *service.TrackerService {
	return a.tracker
}
