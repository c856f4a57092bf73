package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/connections"
	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/models"
	"github.com/taiga-shiokawa/miyakobook/src/store"
)

type ConnectionController struct {
	connections *connections.Service
	users       *store.UserStore
}

func NewConnectionController(svc *connections.Service, users *store.UserStore) *ConnectionController {
	return &ConnectionController{connections: svc, users: users}
}

// SendConnectionRequest sends a connection request from the authenticated
// user to another user.
func (ctrl *ConnectionController) SendConnectionRequest(c *fiber.Ctx) error {
	targetID, err := primitive.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid user ID format"))
	}
	user := currentUser(c)

	if _, err := ctrl.connections.Send(c.Context(), user.Id, targetID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lib.MessageResponse("Connection request sent successfully"))
}

// AcceptConnectionRequest accepts a pending request addressed to the
// authenticated user and links both users.
func (ctrl *ConnectionController) AcceptConnectionRequest(c *fiber.Ctx) error {
	requestID, err := primitive.ObjectIDFromHex(c.Params("requestId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request ID format"))
	}
	user := currentUser(c)

	if err := ctrl.connections.Accept(c.Context(), user.Id, requestID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Connection accepted successfully"))
}

// RejectConnectionRequest rejects a pending request addressed to the
// authenticated user.
func (ctrl *ConnectionController) RejectConnectionRequest(c *fiber.Ctx) error {
	requestID, err := primitive.ObjectIDFromHex(c.Params("requestId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request ID format"))
	}
	user := currentUser(c)

	if err := ctrl.connections.Reject(c.Context(), user.Id, requestID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Connection request rejected"))
}

// GetConnectionRequests returns the authenticated user's pending requests
// with sender data populated.
func (ctrl *ConnectionController) GetConnectionRequests(c *fiber.Ctx) error {
	user := currentUser(c)

	requests, err := ctrl.connections.ListPending(c.Context(), user.Id)
	if err != nil {
		return respondError(c, err)
	}

	senderIDs := make([]primitive.ObjectID, len(requests))
	for i, r := range requests {
		senderIDs[i] = r.Sender
	}
	senders, err := ctrl.users.FindManyByID(c.Context(), senderIDs)
	if err != nil {
		return respondError(c, err)
	}
	byID := make(map[primitive.ObjectID]models.UserDto, len(senders))
	for i := range senders {
		byID[senders[i].Id] = senders[i].Dto()
	}

	type ConnectionRequestResponse struct {
		ID        primitive.ObjectID      `json:"_id"`
		Sender    models.UserDto          `json:"sender"`
		Recipient primitive.ObjectID      `json:"recipient"`
		Status    models.ConnectionStatus `json:"status"`
		CreatedAt time.Time               `json:"createdAt"`
	}
	response := make([]ConnectionRequestResponse, len(requests))
	for i, r := range requests {
		response[i] = ConnectionRequestResponse{
			ID:        r.Id,
			Sender:    byID[r.Sender],
			Recipient: r.Recipient,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

// GetUserConnections returns the users connected to the authenticated user.
func (ctrl *ConnectionController) GetUserConnections(c *fiber.Ctx) error {
	user := currentUser(c)

	current, err := ctrl.users.FindByID(c.Context(), user.Id)
	if err != nil {
		return respondError(c, err)
	}
	if len(current.Connections) == 0 {
		return c.Status(fiber.StatusOK).JSON([]models.UserDto{})
	}

	connected, err := ctrl.users.FindManyByID(c.Context(), current.Connections)
	if err != nil {
		return respondError(c, err)
	}
	dtos := make([]models.UserDto, len(connected))
	for i := range connected {
		dtos[i] = connected[i].Dto()
	}
	return c.Status(fiber.StatusOK).JSON(dtos)
}

// RemoveConnection removes the connection between the authenticated user
// and another user, on both sides.
func (ctrl *ConnectionController) RemoveConnection(c *fiber.Ctx) error {
	targetID, err := primitive.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid user ID format"))
	}
	user := currentUser(c)

	if err := ctrl.connections.Remove(c.Context(), user.Id, targetID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Connection removed successfully"))
}

// GetConnectionStatus reports the relationship between the authenticated
// user and another user.
func (ctrl *ConnectionController) GetConnectionStatus(c *fiber.Ctx) error {
	targetID, err := primitive.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid user ID format"))
	}
	user := currentUser(c)

	status, err := ctrl.connections.GetStatus(c.Context(), user.Id, targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}
