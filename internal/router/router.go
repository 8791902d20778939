package router

import (
	"github.com/communitycontent/internal/handler"
	"github.com/communitycontent/internal/middleware"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionName = "community_session"

// Settings holds the router options read from the application config.
type Settings struct {
	SessionSecret string
	AllowedOrigin string
}

// SetupRouter configures the gin engine and routes.
func SetupRouter(settings Settings, api *handler.API, logger *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.RequestLogging(logger),
		middleware.Metrics(),
		middleware.CORS(settings.AllowedOrigin),
	)

	// visitor id for likes sent without a sessionId
	store := cookie.NewStore([]byte(settings.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 365 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	r.NoRoute(handler.NotFound)
	r.NoMethod(handler.MethodNotAllowed)

	r.GET("/health", api.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/create-contribution", api.CreateContribution)
	r.POST("/delete-issue", api.DeleteIssue)
	r.POST("/create-issue", api.CreateIssue)
	r.POST("/like-issue", api.LikeIssue)

	moderation := r.Group("")
	moderation.Use(api.ModeratorRequired())
	{
		moderation.POST("/moderate-entry", api.ModerateEntry)
	}

	return r
}
