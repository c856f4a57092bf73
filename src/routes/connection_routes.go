package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taiga-shiokawa/miyakobook/src/controllers"
)

// ConnectionRoutes sets up connection-related routes for sending, accepting,
// rejecting requests, listing requests, getting connections, removing
// connections, and checking connection status.
func ConnectionRoutes(app *fiber.App, ctrl *controllers.ConnectionController, protect fiber.Handler) {
	connection := app.Group("/api/v1/connections", protect)

	connection.Post("/request/:userId", ctrl.SendConnectionRequest)
	connection.Put("/accept/:requestId", ctrl.AcceptConnectionRequest)
	connection.Put("/reject/:requestId", ctrl.RejectConnectionRequest)
	connection.Get("/requests", ctrl.GetConnectionRequests)
	connection.Get("/", ctrl.GetUserConnections)
	connection.Delete("/:userId", ctrl.RemoveConnection)
	connection.Get("/status/:userId", ctrl.GetConnectionStatus)
}
