package api

import (
	"context"
	"net/http"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Resolver 返回某个 feed 当前应当下发的文章
type Resolver interface {
	Resolve(ctx context.Context, feed config.Feed) ([]processor.Article, error)
}

type Server struct {
	resolver Resolver
	feeds    []config.Feed
	logger   *zap.Logger
}

func NewServer(resolver Resolver, feeds []config.Feed, logger *zap.Logger) *Server {
	return &Server{resolver: resolver, feeds: feeds, logger: logger}
}

// NewEngine 构建带中间件的 gin 引擎并注册路由
func (s *Server) NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), gin.Recovery(), corsMiddleware())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	for _, f := range s.feeds {
		r.GET(f.Route, s.serveFeed(f))
	}
}

// serveFeed 成功返回文章数组；任何失败都返回 500 和纯文本错误信息
func (s *Server) serveFeed(feed config.Feed) gin.HandlerFunc {
	return func(c *gin.Context) {
		articles, err := s.resolver.Resolve(c.Request.Context(), feed)
		if err != nil {
			s.logger.Error("resolve feed failed",
				zap.String("feed", feed.Name),
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.Error(err))
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		if articles == nil {
			articles = []processor.Article{}
		}
		c.JSON(http.StatusOK, articles)
	}
}
