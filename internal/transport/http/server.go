package http

import (
	"fmt"
	stdhttp "net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
)

func init() {
	// Report validation failures under the query/form parameter name.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// NewServer builds the HTTP server exposing the messenger operations.
func NewServer(svc *core.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires middleware and routes into a gin engine.
func NewRouter(svc *core.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.RateLimit.Enabled {
		r.Use(RateLimitMiddleware(cfg.RateLimit))
	}

	api := NewAPIHandlers(svc, cfg.Limits, logger)
	feed := NewFeedHandler(svc, cfg.FeedBuffer, logger)

	r.GET("/health", healthHandler)
	r.GET("/get_token", api.GetToken)
	r.GET("/add_user", api.AddUser)
	r.GET("/add_channel", api.AddChannel)
	r.POST("/send_message", api.SendMessage)
	r.GET("/read_channel", api.ReadChannel)
	r.GET("/clean_db", api.CleanDB)
	r.GET("/feed", feed.Serve)

	return r
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
