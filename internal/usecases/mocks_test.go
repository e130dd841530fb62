package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"seqrview.backend/internal/domain/entities"
	"seqrview.backend/internal/infrastructure/surepass"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	args := m.Called(ctx)
	return args.Get(0).(context.Context) // Return mocked context
}

// Mock VerificationSessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *entities.VerificationSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.VerificationSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationSession), args.Error(1)
}

func (m *MockSessionRepository) GetActive(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error) {
	args := m.Called(ctx, userID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationSession), args.Error(1)
}

func (m *MockSessionRepository) GetLatest(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error) {
	args := m.Called(ctx, userID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationSession), args.Error(1)
}

func (m *MockSessionRepository) ListResettable(ctx context.Context, userID uuid.UUID) ([]*entities.VerificationSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.VerificationSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, s *entities.VerificationSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// Mock VerificationRecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationRecord, error) {
	args := m.Called(ctx, userID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationRecord), args.Error(1)
}

func (m *MockRecordRepository) Save(ctx context.Context, rec *entities.VerificationRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordRepository) VerifiedByOtherUser(ctx context.Context, hash string, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, hash, userID)
	return args.Bool(0), args.Error(1)
}

// Mock WorkerProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.WorkerProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WorkerProfile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, p *entities.WorkerProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdateNames(ctx context.Context, id uuid.UUID, first, middle, last string) error {
	args := m.Called(ctx, id, first, middle, last)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePhoto(ctx context.Context, id uuid.UUID, photo []byte) error {
	args := m.Called(ctx, id, photo)
	return args.Error(0)
}

// Mock AttendanceRepository
type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) GetDutyContext(ctx context.Context, assignmentID uuid.UUID) (*entities.DutyContext, error) {
	args := m.Called(ctx, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DutyContext), args.Error(1)
}

func (m *MockAttendanceRepository) Create(ctx context.Context, event *entities.AttendanceEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAttendanceRepository) UpdateAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, status entities.AssignmentStatus, completedAt *time.Time) error {
	args := m.Called(ctx, assignmentID, status, completedAt)
	return args.Error(0)
}

func (m *MockAttendanceRepository) List(ctx context.Context, operatorID *uuid.UUID, limit, offset int) ([]*entities.AttendanceEvent, int64, error) {
	args := m.Called(ctx, operatorID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.AttendanceEvent), args.Get(1).(int64), args.Error(2)
}

// Mock IdentityVendor
type MockIdentityVendor struct {
	mock.Mock
}

func (m *MockIdentityVendor) GenerateOTP(ctx context.Context, idNumber string) (*surepass.OTPResult, error) {
	args := m.Called(ctx, idNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*surepass.OTPResult), args.Error(1)
}

func (m *MockIdentityVendor) SubmitOTP(ctx context.Context, clientID, otp string) (*surepass.Identity, error) {
	args := m.Called(ctx, clientID, otp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*surepass.Identity), args.Error(1)
}

func (m *MockIdentityVendor) VerifyDrivingLicence(ctx context.Context, number, dob string) (*surepass.Identity, error) {
	args := m.Called(ctx, number, dob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*surepass.Identity), args.Error(1)
}

// Mock FaceVendor
type MockFaceVendor struct {
	mock.Mock
}

func (m *MockFaceVendor) FaceLiveness(ctx context.Context, image []byte) (*surepass.LivenessResult, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*surepass.LivenessResult), args.Error(1)
}

func (m *MockFaceVendor) FaceMatch(ctx context.Context, selfie, reference []byte) (*surepass.MatchResult, error) {
	args := m.Called(ctx, selfie, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*surepass.MatchResult), args.Error(1)
}

// Mock Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, name, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

// eventRecorder collects emitted events
type eventRecorder struct {
	mu     sync.Mutex
	events []entities.DomainEvent
}

func (r *eventRecorder) Emit(_ context.Context, e entities.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func float64Ptr(v float64) *float64 {
	return &v
}
