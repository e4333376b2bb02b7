package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/gridrank/gridrank/api/middleware"
	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/model"
)

// ScanService is the slice of the engine the HTTP surface needs.
type ScanService interface {
	RunDueScans(ctx context.Context) (model.RunSummary, error)
	TopUp(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (*model.CreditBalance, error)
	GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error)
	GetGrid(ctx context.Context, gridID string) (*model.Grid, error)
}

type Api struct {
	service ScanService
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/scans/run", a.RunScans)

	router.GET("/grids/:id", a.GetGrid)

	router.GET("/balances/:account_id", a.GetBalance)
	router.POST("/balances/:account_id/topup", a.TopUpBalance)

	return a.router
}

func NewAPI(service ScanService) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}
