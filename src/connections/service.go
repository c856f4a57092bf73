// Package connections implements the connection-request state machine:
// pending -> accepted | rejected, with the symmetric friend-graph update on
// acceptance. The duplicate-pending guard is enforced by the request
// store's unique (pair, pending) constraint, not by check-then-act alone.
package connections

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// RequestStore persists connection requests.
type RequestStore interface {
	// InsertPending stores a new pending request. It must fail with a
	// conflict when a pending request already exists for the unordered
	// (sender, recipient) pair, atomically with the insert.
	InsertPending(ctx context.Context, req *models.Connection) error

	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error)

	// Transition moves a request from one status to another in a single
	// conditional update and reports whether the request was matched in the
	// expected source status.
	Transition(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus) (bool, error)

	// FindPendingBetween returns the pending request between two users in
	// either direction, or a not-found error.
	FindPendingBetween(ctx context.Context, a, b primitive.ObjectID) (*models.Connection, error)

	ListPending(ctx context.Context, recipient primitive.ObjectID) ([]models.Connection, error)
}

// Directory is the slice of the user directory the state machine mutates.
// It is the only writer of user connection sets.
type Directory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AddConnection(ctx context.Context, userID, otherID primitive.ObjectID) error
	RemoveConnection(ctx context.Context, userID, otherID primitive.ObjectID) error
}

// Fanout receives the acceptance side effect.
type Fanout interface {
	ConnectionAccepted(senderID, recipientID primitive.ObjectID)
}

// Status values reported by GetStatus.
const (
	StatusConnected    = "connected"
	StatusPending      = "pending"
	StatusReceived     = "received"
	StatusNotConnected = "not_connected"
)

// StatusResult carries the pair status; RequestID is set only for
// "received" so the caller can accept or reject it.
type StatusResult struct {
	Status    string              `json:"status"`
	RequestID *primitive.ObjectID `json:"requestId,omitempty"`
}

type Service struct {
	requests RequestStore
	users    Directory
	fanout   Fanout
}

func NewService(requests RequestStore, users Directory, fanout Fanout) *Service {
	return &Service{requests: requests, users: users, fanout: fanout}
}

// Send creates a pending request from sender to target. Self-requests,
// already-connected pairs and duplicate pending requests each fail with a
// distinct conflict.
func (s *Service) Send(ctx context.Context, senderID, targetID primitive.ObjectID) (*models.Connection, error) {
	if senderID == targetID {
		return nil, errs.Conflict("You can't send a connection request to yourself")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.IsConnectedTo(targetID) {
		return nil, errs.Conflict("You are already connected with this user")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return nil, err
	}

	now := time.Now()
	req := &models.Connection{
		Id:        primitive.NewObjectID(),
		Sender:    senderID,
		Recipient: targetID,
		PairKey:   models.PairKey(senderID, targetID),
		Status:    models.ConnectionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requests.InsertPending(ctx, req); err != nil {
		if errs.Is(err, errs.KindConflict) {
			return nil, errs.Conflict("A connection request already exists")
		}
		return nil, err
	}
	return req, nil
}

// Accept transitions a pending request to accepted, links both users and
// notifies the sender. Only the recipient may accept; a request that is no
// longer pending is rejected as already processed.
func (s *Service) Accept(ctx context.Context, callerID, requestID primitive.ObjectID) error {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Recipient != callerID {
		return errs.Unauthorized("Not authorized to accept this request")
	}
	if req.Status != models.ConnectionStatusPending {
		return errs.Conflict("This request has already been processed")
	}

	// The conditional transition closes the race between two concurrent
	// accepts of the same request: exactly one of them matches.
	ok, err := s.requests.Transition(ctx, requestID, models.ConnectionStatusPending, models.ConnectionStatusAccepted)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Conflict("This request has already been processed")
	}

	// $addToSet semantics keep the graph mutation idempotent.
	if err := s.users.AddConnection(ctx, req.Sender, req.Recipient); err != nil {
		return err
	}
	if err := s.users.AddConnection(ctx, req.Recipient, req.Sender); err != nil {
		return err
	}

	s.fanout.ConnectionAccepted(req.Sender, req.Recipient)
	return nil
}

// Reject transitions a pending request to rejected. No graph mutation, no
// notification.
func (s *Service) Reject(ctx context.Context, callerID, requestID primitive.ObjectID) error {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Recipient != callerID {
		return errs.Unauthorized("Not authorized to reject this request")
	}
	if req.Status != models.ConnectionStatusPending {
		return errs.Conflict("This request has already been processed")
	}

	ok, err := s.requests.Transition(ctx, requestID, models.ConnectionStatusPending, models.ConnectionStatusRejected)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Conflict("This request has already been processed")
	}
	return nil
}

// GetStatus reports the relationship between the caller and another user.
func (s *Service) GetStatus(ctx context.Context, callerID, targetID primitive.ObjectID) (*StatusResult, error) {
	if callerID == targetID {
		return nil, errs.Validation("Cannot check connection status with yourself")
	}

	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.IsConnectedTo(targetID) {
		return &StatusResult{Status: StatusConnected}, nil
	}

	req, err := s.requests.FindPendingBetween(ctx, callerID, targetID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return &StatusResult{Status: StatusNotConnected}, nil
		}
		return nil, err
	}
	if req.Sender == callerID {
		return &StatusResult{Status: StatusPending}, nil
	}
	return &StatusResult{Status: StatusReceived, RequestID: &req.Id}, nil
}

// Remove unlinks both users. Not reversible, no request state involved, no
// notification.
func (s *Service) Remove(ctx context.Context, callerID, targetID primitive.ObjectID) error {
	if callerID == targetID {
		return errs.Validation("You cannot remove yourself as a connection")
	}

	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !caller.IsConnectedTo(targetID) {
		return errs.NotFound("Connection does not exist")
	}

	if err := s.users.RemoveConnection(ctx, callerID, targetID); err != nil {
		return err
	}
	return s.users.RemoveConnection(ctx, targetID, callerID)
}

// ListPending returns the caller's inbox of pending requests.
func (s *Service) ListPending(ctx context.Context, recipientID primitive.ObjectID) ([]models.Connection, error) {
	return s.requests.ListPending(ctx, recipientID)
}
