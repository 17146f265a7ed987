package routes

import (
    "backend/controllers"
    "backend/middlewares"

    "github.com/gin-gonic/gin"
)

func SetupRouter(qc *controllers.SQLQueryController) *gin.Engine {
    r := gin.Default()

    sq := r.Group("/sql-query")
    sq.Use(middlewares.IdentityMiddleware())
    {
        sq.POST("", qc.RunQuery)
        sq.GET("/examples", qc.Examples)
        sq.GET("/schema", qc.Schema)
        sq.POST("/sync", qc.RunSync)
    }

    return r
}
