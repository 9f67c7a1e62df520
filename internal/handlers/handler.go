package handlers

import (
	"database/sql"

	"socialfeed/internal/config"
	"socialfeed/internal/media"
	"socialfeed/internal/monitoring"
	"socialfeed/internal/service"
)

// Handler serves the HTTP API on top of the domain services.
type Handler struct {
	db         *sql.DB
	identity   *service.IdentityService
	engagement *service.EngagementService
	graph      *service.SocialGraphService
	feed       *service.FeedService
	images     *media.Store
	monitor    *monitoring.Service
	monitorKey string
}

type Deps struct {
	DB         *sql.DB
	Identity   *service.IdentityService
	Engagement *service.EngagementService
	Graph      *service.SocialGraphService
	Feed       *service.FeedService
	Images     *media.Store
	Monitor    *monitoring.Service
	Monitoring config.MonitoringConfig
}

func New(deps Deps) *Handler {
	return &Handler{
		db:         deps.DB,
		identity:   deps.Identity,
		engagement: deps.Engagement,
		graph:      deps.Graph,
		feed:       deps.Feed,
		images:     deps.Images,
		monitor:    deps.Monitor,
		monitorKey: deps.Monitoring.APIKey,
	}
}
