package connections

import (
	"context"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// fakeRequestStore enforces the same invariants as the real collection: a
// unique pending constraint per pair checked atomically with the insert,
// and conditional status transitions.
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.Connection
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: map[primitive.ObjectID]*models.Connection{}}
}

func (s *fakeRequestStore) InsertPending(_ context.Context, req *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.PairKey == req.PairKey && existing.Status == models.ConnectionStatusPending {
			return errs.Conflict("duplicate pending request")
		}
	}
	cp := *req
	s.requests[req.Id] = &cp
	return nil
}

func (s *fakeRequestStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, errs.NotFound("Connection request not found")
	}
	cp := *req
	return &cp, nil
}

func (s *fakeRequestStore) Transition(_ context.Context, id primitive.ObjectID, from, to models.ConnectionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	return true, nil
}

func (s *fakeRequestStore) FindPendingBetween(_ context.Context, a, b primitive.ObjectID) (*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.PairKey(a, b)
	for _, req := range s.requests {
		if req.PairKey == key && req.Status == models.ConnectionStatusPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, errs.NotFound("no pending request")
}

func (s *fakeRequestStore) ListPending(_ context.Context, recipient primitive.ObjectID) ([]models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Connection
	for _, req := range s.requests {
		if req.Recipient == recipient && req.Status == models.ConnectionStatusPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

type fakeUserDirectory struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserDirectory(ids ...primitive.ObjectID) *fakeUserDirectory {
	d := &fakeUserDirectory{users: map[primitive.ObjectID]*models.User{}}
	for _, id := range ids {
		d.users[id] = &models.User{Id: id}
	}
	return d
}

func (d *fakeUserDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, errs.NotFound("User not found")
	}
	cp := *u
	cp.Connections = append([]primitive.ObjectID(nil), u.Connections...)
	return &cp, nil
}

func (d *fakeUserDirectory) AddConnection(_ context.Context, userID, otherID primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return errs.NotFound("User not found")
	}
	if !u.IsConnectedTo(otherID) {
		u.Connections = append(u.Connections, otherID)
	}
	return nil
}

func (d *fakeUserDirectory) RemoveConnection(_ context.Context, userID, otherID primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return errs.NotFound("User not found")
	}
	filtered := u.Connections[:0:0]
	for _, id := range u.Connections {
		if id != otherID {
			filtered = append(filtered, id)
		}
	}
	u.Connections = filtered
	return nil
}

type acceptRecorder struct {
	mu    sync.Mutex
	calls int
}

func (r *acceptRecorder) ConnectionAccepted(_, _ primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func setup(ids ...primitive.ObjectID) (*Service, *fakeRequestStore, *fakeUserDirectory, *acceptRecorder) {
	requests := newFakeRequestStore()
	users := newFakeUserDirectory(ids...)
	recorder := &acceptRecorder{}
	return NewService(requests, users, recorder), requests, users, recorder
}

func TestSendGuards(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	ghost := primitive.NewObjectID()
	svc, _, users, _ := setup(alice, bob)

	if _, err := svc.Send(context.Background(), alice, alice); !errs.Is(err, errs.KindConflict) {
		t.Errorf("self-request: got %v, want conflict", err)
	}
	if _, err := svc.Send(context.Background(), alice, ghost); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("unknown target: got %v, want not-found", err)
	}

	users.users[alice].Connections = []primitive.ObjectID{bob}
	if _, err := svc.Send(context.Background(), alice, bob); !errs.Is(err, errs.KindConflict) {
		t.Errorf("already connected: got %v, want conflict", err)
	}
}

func TestSendDuplicatePendingEitherDirection(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, _, _ := setup(alice, bob)

	if _, err := svc.Send(context.Background(), alice, bob); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(context.Background(), alice, bob); !errs.Is(err, errs.KindConflict) {
		t.Errorf("repeat A->B: got %v, want conflict", err)
	}
	// The unordered pair key blocks the reverse direction too.
	if _, err := svc.Send(context.Background(), bob, alice); !errs.Is(err, errs.KindConflict) {
		t.Errorf("reverse B->A: got %v, want conflict", err)
	}
}

func TestSendAfterProcessingAllowed(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, _, _ := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Reject(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}
	// A rejected request no longer blocks a fresh one.
	if _, err := svc.Send(context.Background(), alice, bob); err != nil {
		t.Errorf("re-send after rejection: %v", err)
	}
}

func TestAcceptLinksBothUsers(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, requests, users, recorder := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Accept(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}

	if !users.users[alice].IsConnectedTo(bob) || !users.users[bob].IsConnectedTo(alice) {
		t.Error("acceptance must link both users symmetrically")
	}
	stored, _ := requests.FindByID(context.Background(), req.Id)
	if stored.Status != models.ConnectionStatusAccepted {
		t.Errorf("request status = %s, want accepted", stored.Status)
	}
	if recorder.calls != 1 {
		t.Errorf("acceptance fan-out called %d times, want 1", recorder.calls)
	}
}

func TestAcceptAuthorization(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, _, _ := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	// Neither the sender nor a bystander may accept.
	if err := svc.Accept(context.Background(), alice, req.Id); !errs.Is(err, errs.KindUnauthorized) {
		t.Errorf("sender accept: got %v, want unauthorized", err)
	}
	if err := svc.Accept(context.Background(), primitive.NewObjectID(), req.Id); !errs.Is(err, errs.KindUnauthorized) {
		t.Errorf("bystander accept: got %v, want unauthorized", err)
	}
	if err := svc.Accept(context.Background(), bob, primitive.NewObjectID()); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("unknown request: got %v, want not-found", err)
	}
}

func TestDoubleProcessing(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, users, recorder := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Accept(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}
	if err := svc.Accept(context.Background(), bob, req.Id); !errs.Is(err, errs.KindConflict) {
		t.Errorf("second accept: got %v, want conflict", err)
	}
	if err := svc.Reject(context.Background(), bob, req.Id); !errs.Is(err, errs.KindConflict) {
		t.Errorf("reject after accept: got %v, want conflict", err)
	}
	if recorder.calls != 1 {
		t.Errorf("fan-out called %d times, want exactly 1", recorder.calls)
	}
	if len(users.users[alice].Connections) != 1 {
		t.Errorf("sender has %d connections, want 1", len(users.users[alice].Connections))
	}
}

func TestConcurrentAccepts(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, _, recorder := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	errors := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errors <- svc.Accept(context.Background(), bob, req.Id)
		}()
	}
	wg.Wait()
	close(errors)

	var succeeded int
	for err := range errors {
		if err == nil {
			succeeded++
		} else if !errs.Is(err, errs.KindConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d accepts succeeded, want exactly 1", succeeded)
	}
	if recorder.calls != 1 {
		t.Errorf("fan-out called %d times, want 1", recorder.calls)
	}
}

func TestRejectIsQuiet(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, users, recorder := setup(alice, bob)

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Reject(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}

	if recorder.calls != 0 {
		t.Error("rejection must not notify the sender")
	}
	if len(users.users[alice].Connections) != 0 || len(users.users[bob].Connections) != 0 {
		t.Error("rejection must not mutate the graph")
	}
}

func TestGetStatus(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	carol := primitive.NewObjectID()
	svc, _, _, _ := setup(alice, bob, carol)

	if _, err := svc.GetStatus(context.Background(), alice, alice); !errs.Is(err, errs.KindValidation) {
		t.Errorf("self status: got %v, want validation error", err)
	}

	res, err := svc.GetStatus(context.Background(), alice, carol)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusNotConnected {
		t.Errorf("no relationship: status = %s, want %s", res.Status, StatusNotConnected)
	}

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	res, _ = svc.GetStatus(context.Background(), alice, bob)
	if res.Status != StatusPending {
		t.Errorf("sender view: status = %s, want %s", res.Status, StatusPending)
	}

	res, _ = svc.GetStatus(context.Background(), bob, alice)
	if res.Status != StatusReceived {
		t.Errorf("recipient view: status = %s, want %s", res.Status, StatusReceived)
	}
	if res.RequestID == nil || *res.RequestID != req.Id {
		t.Error("recipient view must carry the request id")
	}

	if err := svc.Accept(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}
	res, _ = svc.GetStatus(context.Background(), alice, bob)
	if res.Status != StatusConnected {
		t.Errorf("after acceptance: status = %s, want %s", res.Status, StatusConnected)
	}
}

func TestRemove(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	svc, _, users, _ := setup(alice, bob)

	if err := svc.Remove(context.Background(), alice, alice); !errs.Is(err, errs.KindValidation) {
		t.Errorf("self remove: got %v, want validation error", err)
	}
	if err := svc.Remove(context.Background(), alice, bob); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("not connected: got %v, want not-found", err)
	}

	req, err := svc.Send(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Accept(context.Background(), bob, req.Id); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove(context.Background(), alice, bob); err != nil {
		t.Fatal(err)
	}
	if users.users[alice].IsConnectedTo(bob) || users.users[bob].IsConnectedTo(alice) {
		t.Error("removal must unlink both users")
	}
}
