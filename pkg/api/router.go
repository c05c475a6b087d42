package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/homai-alexa/pkg/api/handlers"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

// Dependencies are the collaborators the HTTP surface drives.
type Dependencies struct {
	Dispatcher handlers.Dispatcher
	Validator  handlers.EnvelopeValidator
	Resolver   Resolver
	Directory  device.Directory
	Broker     handlers.BrokerStatus
	Recorder   *diag.Recorder
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Dependencies
}

// NewRouter creates a new API router
func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine: engine,
		deps:   deps,
	}

	router.setupRoutes()

	return router
}

func (r *Router) setupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(r.deps.Broker, r.deps.Recorder)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)
		v1.GET("/diagnostics", healthHandler.Diagnostics)

		directivesHandler := handlers.NewDirectivesHandler(r.deps.Dispatcher, r.deps.Validator)
		v1.POST("/directives", directivesHandler.Handle)

		devicesHandler := handlers.NewDevicesHandler(r.deps.Directory)
		usersHandler := handlers.NewUsersHandler(r.deps.Directory)
		users := v1.Group("/users/:id", RequireUser(r.deps.Resolver))
		{
			users.PUT("/access-token", usersHandler.SetAccessToken)
			users.GET("/devices", devicesHandler.ListDevices)
			users.GET("/devices/:deviceId", devicesHandler.GetDevice)
		}
	}
}

// Handler exposes the engine for http.Server and tests.
func (r *Router) Handler() http.Handler {
	return r.engine
}
