package httpapi

import (
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/chat"
	"github.com/sindrigils/chatroom/internal/appserver/lbauth"
	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/sindrigils/chatroom/internal/appserver/userauth"
	"github.com/sindrigils/chatroom/internal/platform/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps bundles everything the app server's routes need.
type Deps struct {
	Persistence types.PersistenceService
	Tokens      types.TokenService
	Chat        *chat.Core
	SessionTTL  time.Duration
	LBSecret    string
	Domain      string
	Production  bool
	Log         *zap.Logger
}

// NewRouter builds the full gin engine for the app server: the LB-Auth Guard
// (spec.md §4.9) gates every route but /health; the User-Auth Guard (§4.10)
// additionally gates every protected route, mirroring the original app
// server's routes/mod.rs public/protected/ws split.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Correlation())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{d.Domain}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Lb-Secret", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))

	r.GET("/api/v1/health", d.handleHealth)

	guarded := r.Group("/api/v1")
	guarded.Use(lbauth.Guard(d.LBSecret))
	{
		guarded.POST("/register", d.handleRegister)
		guarded.POST("/login", d.handleLogin)
	}

	protected := guarded.Group("")
	protected.Use(userauth.Guard(d.Tokens, d.Persistence))
	{
		protected.POST("/logout", d.handleLogout)
		protected.GET("/whoami", d.handleWhoami)
		protected.POST("/chat", d.handleCreateChat)
		protected.GET("/chat", d.handleActiveChats)
		protected.GET("/chat/:id", d.handleGetChat)
		protected.GET("/chat/name/:name", d.handleGetChatsByName)
	}

	wsGroup := r.Group("/ws")
	wsGroup.Use(lbauth.Guard(d.LBSecret))
	wsGroup.Use(userauth.Guard(d.Tokens, d.Persistence))
	{
		wsGroup.GET("/chat", d.handleChatWS)
		wsGroup.GET("/chat-list", d.handleChatListWS)
	}

	return r
}
