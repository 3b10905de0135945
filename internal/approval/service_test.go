package approval

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasirkit/poscore/internal/orders"
)

type fakeStore struct {
	mu       sync.Mutex
	tenants  map[string]string // orderID -> tenantID
	requests map[string]*orders.DeletionRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:  map[string]string{},
		requests: map[string]*orders.DeletionRequest{},
	}
}

func (f *fakeStore) OrderTenant(ctx context.Context, orderID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[orderID]
	if !ok {
		return "", orders.ErrOrderNotFound
	}
	return t, nil
}

func (f *fakeStore) PendingByOrder(ctx context.Context, orderID string) (*orders.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.OrderID == orderID && req.Status == orders.RequestPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Insert(ctx context.Context, req *orders.DeletionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.requests {
		if existing.OrderID == req.OrderID && existing.Status == orders.RequestPending {
			return ErrPendingExists
		}
	}
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) ListPending(ctx context.Context, tenantID string) ([]orders.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []orders.DeletionRequest
	for _, req := range f.requests {
		if req.TenantID == tenantID && req.Status == orders.RequestPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, requestID, tenantID string) (*orders.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.TenantID != tenantID {
		return nil, orders.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeStore) MarkRejected(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.Status != orders.RequestPending {
		return ErrRequestResolved
	}
	req.Status = orders.RequestRejected
	return nil
}

type fakeRemover struct {
	mu      sync.Mutex
	removed map[string]string // orderID -> tenantID it was removed under
	orders  map[string]*orders.Order
}

func newFakeRemover() *fakeRemover {
	return &fakeRemover{removed: map[string]string{}, orders: map[string]*orders.Order{}}
}

func (f *fakeRemover) RemoveOrderTx(ctx context.Context, orderID, tenantID string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, orders.ErrOrderNotFound
	}
	delete(f.orders, orderID)
	f.removed[orderID] = tenantID
	return o, nil
}

func newService(store Store, remover OrderRemover) *Service {
	return &Service{Store: store, Remover: remover, Log: zap.NewNop()}
}

func TestRequest_CreatesPending(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	req, existed, err := svc.Request(context.Background(), "order-1", "user-9", "wrong item")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, orders.RequestPending, req.Status)
	assert.Equal(t, "tenant-1", req.TenantID)
	assert.Equal(t, "order-1", req.OrderID)
	assert.Equal(t, "user-9", req.RequestedBy)
	assert.NotEmpty(t, req.ID)
}

func TestRequest_OrderNotFound(t *testing.T) {
	svc := newService(newFakeStore(), newFakeRemover())

	_, _, err := svc.Request(context.Background(), "missing", "user-9", "reason")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestRequest_IdempotentOnPending(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	first, existed, err := svc.Request(context.Background(), "order-1", "user-9", "wrong item")
	require.NoError(t, err)
	require.False(t, existed)
	second, existed, err := svc.Request(context.Background(), "order-1", "user-3", "other reason")
	require.NoError(t, err)
	assert.True(t, existed)

	assert.Equal(t, first.ID, second.ID, "second request must return the existing one")
	assert.Len(t, store.requests, 1)
}

func TestRequest_RaceLoserGetsWinner(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	// Seed a pending request that appears between the service's existence
	// check and its insert (simulated by inserting directly).
	winner := &orders.DeletionRequest{
		ID: "winner", TenantID: "tenant-1", OrderID: "order-1",
		RequestedBy: "user-1", Reason: "first", Status: orders.RequestPending,
	}
	require.NoError(t, store.Insert(context.Background(), winner))

	req, existed, err := svc.Request(context.Background(), "order-1", "user-2", "second")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "winner", req.ID)
}

func TestResolve_Reject(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	req, _, err := svc.Request(context.Background(), "order-1", "user-9", "typo")
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), req.ID, "tenant-1", ActionReject)
	require.NoError(t, err)
	assert.Equal(t, ActionReject, res.Action)
	assert.Equal(t, orders.RequestRejected, res.Request.Status)
	assert.Nil(t, res.RemovedOrder)

	// Rejected is terminal: the row is retained and cannot be resolved again.
	assert.Equal(t, orders.RequestRejected, store.requests[req.ID].Status)
	_, err = svc.Resolve(context.Background(), req.ID, "tenant-1", ActionApprove)
	assert.ErrorIs(t, err, ErrRequestResolved)
	_, err = svc.Resolve(context.Background(), req.ID, "tenant-1", ActionReject)
	assert.ErrorIs(t, err, ErrRequestResolved)
}

func TestResolve_ApproveUsesOrdersRecordedTenant(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	remover := newFakeRemover()
	remover.orders["order-1"] = &orders.Order{ID: "order-1", TenantID: "tenant-1", TotalCents: 3000}
	svc := newService(store, remover)

	req, _, err := svc.Request(context.Background(), "order-1", "user-9", "duplicate sale")
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), req.ID, "tenant-1", ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, res.Action)
	require.NotNil(t, res.RemovedOrder)
	assert.Equal(t, 3000, res.RemovedOrder.TotalCents)
	assert.Equal(t, "tenant-1", remover.removed["order-1"],
		"removal must run under the order's recorded tenant")
}

func TestResolve_RequestNotFound(t *testing.T) {
	svc := newService(newFakeStore(), newFakeRemover())

	_, err := svc.Resolve(context.Background(), "missing", "tenant-1", ActionApprove)
	assert.ErrorIs(t, err, orders.ErrRequestNotFound)
}

func TestResolve_WrongTenantIsNotFound(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	req, _, err := svc.Request(context.Background(), "order-1", "user-9", "reason")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, "tenant-2", ActionReject)
	assert.ErrorIs(t, err, orders.ErrRequestNotFound)
}

func TestResolve_InvalidAction(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	svc := newService(store, newFakeRemover())

	req, _, err := svc.Request(context.Background(), "order-1", "user-9", "reason")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, "tenant-1", Action("MAYBE"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestResolve_SecondApproveFailsNotFound(t *testing.T) {
	store := newFakeStore()
	store.tenants["order-1"] = "tenant-1"
	remover := newFakeRemover()
	remover.orders["order-1"] = &orders.Order{ID: "order-1", TenantID: "tenant-1"}
	svc := newService(store, remover)

	req, _, err := svc.Request(context.Background(), "order-1", "user-9", "reason")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, "tenant-1", ActionApprove)
	require.NoError(t, err)

	// The order is gone, so a replayed approve cannot restore stock twice.
	_, err = svc.Resolve(context.Background(), req.ID, "tenant-1", ActionApprove)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}
