//	mockgen -destination=internal/usecase/mocks/mock_interfaces.go -package=mocks github.com/iho/factoryledger/internal/usecase SnapshotCache,EditLogRepository,ProcessingGuard,IdempotencyStore
//

// Package mocks is a generated GoMock package.
package mocks

import (
	context "context"
	reflect "reflect"
	time "time"

	domain "github.com/iho/factoryledger/internal/domain"
	gomock "go.uber.org/mock/gomock"
)

// MockSnapshotCache is a mock of SnapshotCache interface.
type MockSnapshotCache struct {
	ctrl     *gomock.Controller
	recorder *MockSnapshotCacheMockRecorder
	isgomock struct{}
}

// MockSnapshotCacheMockRecorder is the mock recorder for MockSnapshotCache.
type MockSnapshotCacheMockRecorder struct {
	mock *MockSnapshotCache
}

// NewMockSnapshotCache creates a new mock instance.
func NewMockSnapshotCache(ctrl *gomock.Controller) *MockSnapshotCache {
	mock := &MockSnapshotCache{ctrl: ctrl}
	mock.recorder = &MockSnapshotCacheMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSnapshotCache) EXPECT() *MockSnapshotCacheMockRecorder {
	return m.recorder
}

// Bump mocks base method.
func (m *MockSnapshotCache) Bump(ctx context.Context) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Bump", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Bump indicates an expected call of Bump.
func (mr *MockSnapshotCacheMockRecorder) Bump(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Bump", reflect.TypeOf((*MockSnapshotCache)(nil).Bump), ctx)
}

// Load mocks base method.
func (m *MockSnapshotCache) Load(ctx context.Context, version int64) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Load", ctx, version)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Load indicates an expected call of Load.
func (mr *MockSnapshotCacheMockRecorder) Load(ctx, version any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Load", reflect.TypeOf((*MockSnapshotCache)(nil).Load), ctx, version)
}

// Store mocks base method.
func (m *MockSnapshotCache) Store(ctx context.Context, version int64, data []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Store", ctx, version, data)
	ret0, _ := ret[0].(error)
	return ret0
}

// Store indicates an expected call of Store.
func (mr *MockSnapshotCacheMockRecorder) Store(ctx, version, data any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Store", reflect.TypeOf((*MockSnapshotCache)(nil).Store), ctx, version, data)
}

// Version mocks base method.
func (m *MockSnapshotCache) Version(ctx context.Context) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Version", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Version indicates an expected call of Version.
func (mr *MockSnapshotCacheMockRecorder) Version(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Version", reflect.TypeOf((*MockSnapshotCache)(nil).Version), ctx)
}

// MockEditLogRepository is a mock of EditLogRepository interface.
type MockEditLogRepository struct {
	ctrl     *gomock.Controller
	recorder *MockEditLogRepositoryMockRecorder
	isgomock struct{}
}

// MockEditLogRepositoryMockRecorder is the mock recorder for MockEditLogRepository.
type MockEditLogRepositoryMockRecorder struct {
	mock *MockEditLogRepository
}

// NewMockEditLogRepository creates a new mock instance.
func NewMockEditLogRepository(ctrl *gomock.Controller) *MockEditLogRepository {
	mock := &MockEditLogRepository{ctrl: ctrl}
	mock.recorder = &MockEditLogRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockEditLogRepository) EXPECT() *MockEditLogRepositoryMockRecorder {
	return m.recorder
}

// Create mocks base method.
func (m *MockEditLogRepository) Create(ctx context.Context, rec *domain.EditRecord) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockEditLogRepositoryMockRecorder) Create(ctx, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockEditLogRepository)(nil).Create), ctx, rec)
}

// ListByStatus mocks base method.
func (m *MockEditLogRepository) ListByStatus(ctx context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListByStatus", ctx, status, limit, offset)
	ret0, _ := ret[0].([]*domain.EditRecord)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListByStatus indicates an expected call of ListByStatus.
func (mr *MockEditLogRepositoryMockRecorder) ListByStatus(ctx, status, limit, offset any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListByStatus", reflect.TypeOf((*MockEditLogRepository)(nil).ListByStatus), ctx, status, limit, offset)
}

// MockProcessingGuard is a mock of ProcessingGuard interface.
type MockProcessingGuard struct {
	ctrl     *gomock.Controller
	recorder *MockProcessingGuardMockRecorder
	isgomock struct{}
}

// MockProcessingGuardMockRecorder is the mock recorder for MockProcessingGuard.
type MockProcessingGuardMockRecorder struct {
	mock *MockProcessingGuard
}

// NewMockProcessingGuard creates a new mock instance.
func NewMockProcessingGuard(ctrl *gomock.Controller) *MockProcessingGuard {
	mock := &MockProcessingGuard{ctrl: ctrl}
	mock.recorder = &MockProcessingGuardMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockProcessingGuard) EXPECT() *MockProcessingGuardMockRecorder {
	return m.recorder
}

// Acquire mocks base method.
func (m *MockProcessingGuard) Acquire(ctx context.Context, key string) (func(), error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Acquire", ctx, key)
	ret0, _ := ret[0].(func())
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Acquire indicates an expected call of Acquire.
func (mr *MockProcessingGuardMockRecorder) Acquire(ctx, key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Acquire", reflect.TypeOf((*MockProcessingGuard)(nil).Acquire), ctx, key)
}

// MockIdempotencyStore is a mock of IdempotencyStore interface.
type MockIdempotencyStore struct {
	ctrl     *gomock.Controller
	recorder *MockIdempotencyStoreMockRecorder
	isgomock struct{}
}

// MockIdempotencyStoreMockRecorder is the mock recorder for MockIdempotencyStore.
type MockIdempotencyStoreMockRecorder struct {
	mock *MockIdempotencyStore
}

// NewMockIdempotencyStore creates a new mock instance.
func NewMockIdempotencyStore(ctrl *gomock.Controller) *MockIdempotencyStore {
	mock := &MockIdempotencyStore{ctrl: ctrl}
	mock.recorder = &MockIdempotencyStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIdempotencyStore) EXPECT() *MockIdempotencyStoreMockRecorder {
	return m.recorder
}

// CheckAndSet mocks base method.
func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckAndSet", ctx, key, response, ttl)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].([]byte)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// CheckAndSet indicates an expected call of CheckAndSet.
func (mr *MockIdempotencyStoreMockRecorder) CheckAndSet(ctx, key, response, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckAndSet", reflect.TypeOf((*MockIdempotencyStore)(nil).CheckAndSet), ctx, key, response, ttl)
}

// Release mocks base method.
func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Release", ctx, key)
	ret0, _ := ret[0].(error)
	return ret0
}

// Release indicates an expected call of Release.
func (mr *MockIdempotencyStoreMockRecorder) Release(ctx, key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockIdempotencyStore)(nil).Release), ctx, key)
}

// Update mocks base method.
func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Update", ctx, key, response, ttl)
	ret0, _ := ret[0].(error)
	return ret0
}

// Update indicates an expected call of Update.
func (mr *MockIdempotencyStoreMockRecorder) Update(ctx, key, response, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Update", reflect.TypeOf((*MockIdempotencyStore)(nil).Update), ctx, key, response, ttl)
}
