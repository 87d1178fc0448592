package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pagecraft/action-service/controllers"
	"github.com/pagecraft/action-service/services"
)

func RegisterActionRoutes(r *gin.Engine, dispatcher *services.Dispatcher) {
	controller := controllers.NewActionController(dispatcher)

	api := r.Group("/actions")
	{
		api.POST("/dispatch", controller.Dispatch)
	}
}
