package api

import (
	"net/http"

	"github.com/fyerfyer/pdf-ingest/api/handler"
	"github.com/fyerfyer/pdf-ingest/api/middleware"
	"github.com/fyerfyer/pdf-ingest/api/model"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(ingestHandler *handler.IngestHandler) (*gin.Engine, error) {
	if err := model.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	// 应用全局中间件，追踪ID需要在日志和错误处理之前设置
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.Cors())
	router.Use(middleware.ErrorMiddleware())

	// 创建API分组
	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			// 上传并处理PDF - POST /api/v1/upload/pdf
			v1.POST("/upload/pdf", ingestHandler.UploadPDF)

			ingestGroup := v1.Group("/ingestions")
			{
				// 查询处理记录 - GET /api/v1/ingestions/:id
				ingestGroup.GET("/:id", ingestHandler.GetIngestion)

				// 页面列表 - GET /api/v1/ingestions/:id/pages
				ingestGroup.GET("/:id/pages", ingestHandler.ListPages)

				// 下载页面 - GET /api/v1/ingestions/:id/pages/:page
				ingestGroup.GET("/:id/pages/:page", ingestHandler.DownloadPage)
			}
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router, nil
}
