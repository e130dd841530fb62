package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/domain/repositories"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/internal/infrastructure/surepass"
	"seqrview.backend/pkg/logger"
	redispkg "seqrview.backend/pkg/redis"
	"seqrview.backend/pkg/utils"
)

const (
	startLockTTL       = 90 * time.Second
	defaultMaxAttempts = 3
)

// IdentityVendor is the ID-document part of the verification vendor
type IdentityVendor interface {
	GenerateOTP(ctx context.Context, idNumber string) (*surepass.OTPResult, error)
	SubmitOTP(ctx context.Context, clientID, otp string) (*surepass.Identity, error)
	VerifyDrivingLicence(ctx context.Context, number, dob string) (*surepass.Identity, error)
}

// Locker takes a named lock shared across instances
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// EventEmitter hands domain events to the async dispatcher. Emit must not block.
type EventEmitter interface {
	Emit(ctx context.Context, event entities.DomainEvent)
}

// KycDeps groups the collaborators of KycUsecase
type KycDeps struct {
	UnitOfWork repositories.UnitOfWork
	Sessions   repositories.VerificationSessionRepository
	Records    repositories.VerificationRecordRepository
	Profiles   repositories.WorkerProfileRepository
	Users      repositories.UserRepository
	Vendor     IdentityVendor
	FaceGate   *FaceGate
	Locker     Locker
	Events     EventEmitter
	Metrics    *metrics.Metrics
}

// KycUsecase drives the KYC session state machine for the Aadhaar OTP and
// driving licence paths. Each step runs under a row lock on its session;
// vendor calls happen between transactions, never inside one.
type KycUsecase struct {
	uow       repositories.UnitOfWork
	sessions  repositories.VerificationSessionRepository
	records   repositories.VerificationRecordRepository
	profiles  repositories.WorkerProfileRepository
	users     repositories.UserRepository
	vendor    IdentityVendor
	gate      *FaceGate
	dedupe    *DedupeIndex
	names     NameMatcher
	projector ProfileProjector
	locker    Locker
	events    EventEmitter
	metrics   *metrics.Metrics
	cfg       config.VerificationConfig
	now       func() time.Time
}

func NewKycUsecase(deps KycDeps, cfg config.VerificationConfig) *KycUsecase {
	return &KycUsecase{
		uow:      deps.UnitOfWork,
		sessions: deps.Sessions,
		records:  deps.Records,
		profiles: deps.Profiles,
		users:    deps.Users,
		vendor:   deps.Vendor,
		gate:     deps.FaceGate,
		dedupe:   NewDedupeIndex(cfg.DedupeSecret, deps.Records),
		locker:   deps.Locker,
		events:   deps.Events,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetClock overrides the time source
func (u *KycUsecase) SetClock(now func() time.Time) {
	u.now = now
}

// StartAadhaar sends an OTP for idNumber and opens an OTP_SENT session. An
// unexpired active session is returned as is.
func (u *KycUsecase) StartAadhaar(ctx context.Context, userID uuid.UUID, idNumber string) (*entities.StartResult, error) {
	idNumber = strings.TrimSpace(idNumber)
	if !validAadhaar(idNumber) {
		return nil, domainerrors.BadRequest("id_number must be 12 digits")
	}

	release, err := u.lockStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	hash := u.dedupe.Hash(idNumber)
	existing, err := u.prepareStart(ctx, userID, entities.MethodAadhaar, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return u.existingStart(existing), nil
	}

	otp, err := u.vendor.GenerateOTP(ctx, idNumber)
	if err != nil {
		return nil, vendorFailure(err, u.cooldownSeconds())
	}
	if otp.ClientID == "" {
		return nil, domainerrors.VendorUnavailable("Verification provider returned no session", nil)
	}

	now := u.now()
	s := &entities.VerificationSession{
		ID:             utils.GenerateUUIDv7(),
		UserID:         userID,
		Method:         entities.MethodAadhaar,
		Status:         entities.SessionOTPSent,
		DedupeHash:     hash,
		VendorClientID: null.StringFrom(otp.ClientID),
		OTPSentAt:      null.TimeFrom(now),
		ExpiresAt:      now.Add(u.cfg.SessionTTL()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		if err := u.createSession(ctx, s); err != nil {
			return err
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		u.projector.KycStarted(p, entities.MethodAadhaar, entities.KYCOTPSent)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		fx.transition(s, entities.EventKYCStarted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entities.StartResult{Session: s, RetryAfter: u.cooldownSeconds()}, nil
}

// ResendOTP sends a fresh OTP for an OTP_SENT session and resets its attempts
func (u *KycUsecase) ResendOTP(ctx context.Context, userID, sessionID uuid.UUID, idNumber string) (*entities.StartResult, error) {
	idNumber = strings.TrimSpace(idNumber)
	if !validAadhaar(idNumber) {
		return nil, domainerrors.BadRequest("id_number must be 12 digits")
	}
	hash := u.dedupe.Hash(idNumber)

	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.openSession(ctx, fx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status != entities.SessionOTPSent {
			return invalidTransition(s.Status)
		}
		if s.DedupeHash != hash {
			return domainerrors.BadRequest("id_number does not match this session")
		}
		if wait := u.cfg.ResendCooldown() - u.now().Sub(s.UpdatedAt); wait > 0 {
			secs := ceilSeconds(wait)
			return domainerrors.RateLimited(fmt.Sprintf("Please wait %ds before resending", secs), secs)
		}
		// touching the row starts the next cooldown before the vendor call
		return u.updateSession(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	otp, err := u.vendor.GenerateOTP(ctx, idNumber)
	if err != nil {
		return nil, vendorFailure(err, u.cooldownSeconds())
	}

	var out *entities.VerificationSession
	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.lockedSession(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status != entities.SessionOTPSent {
			return invalidTransition(s.Status)
		}
		s.OTPAttempts = 0
		if otp.ClientID != "" {
			s.VendorClientID = null.StringFrom(otp.ClientID)
		}
		s.OTPSentAt = null.TimeFrom(u.now())
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		u.projector.OtpSent(p)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "KYC OTP resent", zap.String("kyc_session_id", sessionID.String()), zap.String("user_id", userID.String()))
	return &entities.StartResult{Session: out, RetryAfter: u.cooldownSeconds()}, nil
}

// SubmitOTP verifies otp with the vendor. The attempt is counted and
// committed before the vendor call; a vendor failure on the last attempt
// fails the session. A submit arriving while the last attempt is in flight
// gets Conflict and changes nothing.
func (u *KycUsecase) SubmitOTP(ctx context.Context, userID, sessionID uuid.UUID, otp string) (*entities.VerificationSession, error) {
	otp = strings.TrimSpace(otp)
	if len(otp) < 4 || len(otp) > 10 || !isDigits(otp) {
		return nil, domainerrors.BadRequest("otp must be 4 to 10 digits")
	}
	maxAttempts := u.maxAttempts()

	var clientID string
	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.openSession(ctx, fx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status == entities.SessionFailed {
			if err := u.failOTP(ctx, s); err != nil {
				return err
			}
			return afterCommit(restartRequired("OTP attempts exceeded. Please restart verification."))
		}
		if s.Status != entities.SessionOTPSent {
			return invalidTransition(s.Status)
		}
		if s.OTPAttempts >= maxAttempts {
			// the last attempt is still with the vendor; its outcome decides
			return domainerrors.Conflict("OTP verification already in progress")
		}
		if ttl := u.cfg.OTPTTL(); ttl > 0 && s.OTPSentAt.Valid && u.now().Sub(s.OTPSentAt.Time) > ttl {
			if err := u.updateSession(ctx, s); err != nil {
				return err
			}
			return afterCommit(otpExpired())
		}
		s.OTPAttempts++
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		clientID = s.VendorClientID.String
		return nil
	})
	if err != nil {
		return nil, err
	}

	identity, vendorErr := u.vendor.SubmitOTP(ctx, clientID, otp)

	var out *entities.VerificationSession
	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.lockedSession(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status != entities.SessionOTPSent {
			return invalidTransition(s.Status)
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}

		if vendorErr != nil {
			if s.OTPAttempts >= maxAttempts {
				s.Status = entities.SessionFailed
				if err := u.updateSession(ctx, s); err != nil {
					return err
				}
				u.projector.OtpFailed(p, vendorMessage(vendorErr))
				fx.transition(s, entities.EventKYCFailed)
			} else {
				u.projector.OtpSent(p)
			}
			if err := u.saveProfile(ctx, p); err != nil {
				return err
			}
			return afterCommit(vendorFailure(vendorErr, 0))
		}

		applyIdentity(s, identity)
		s.Status = entities.SessionOTPVerified
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		u.projector.OtpVerified(p)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		fx.transition(s, entities.EventKYCOTPVerified)
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StartDL looks up a driving licence and opens a DL_VERIFIED session in
// one vendor call
func (u *KycUsecase) StartDL(ctx context.Context, userID uuid.UUID, licenceNumber, dob string) (*entities.StartResult, error) {
	number := strings.TrimSpace(licenceNumber)
	if len(number) < 5 || len(number) > 20 {
		return nil, domainerrors.BadRequest("license_number must be 5 to 20 characters")
	}
	if _, err := time.Parse("2006-01-02", dob); err != nil {
		return nil, domainerrors.BadRequest("dob must be YYYY-MM-DD")
	}

	release, err := u.lockStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	hash := u.dedupe.Hash(number)
	existing, err := u.prepareStart(ctx, userID, entities.MethodDL, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &entities.StartResult{Session: existing}, nil
	}

	identity, err := u.vendor.VerifyDrivingLicence(ctx, number, dob)
	if err != nil {
		return nil, vendorFailure(err, u.cooldownSeconds())
	}

	now := u.now()
	s := &entities.VerificationSession{
		ID:         utils.GenerateUUIDv7(),
		UserID:     userID,
		Method:     entities.MethodDL,
		Status:     entities.SessionDLVerified,
		DedupeHash: hash,
		ExpiresAt:  now.Add(u.cfg.SessionTTL()),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyIdentity(s, identity)
	if !s.DOB.Valid {
		s.DOB = null.StringFrom(dob)
	}

	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		if err := u.createSession(ctx, s); err != nil {
			return err
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		u.projector.KycStarted(p, entities.MethodDL, entities.KYCOTPVerified)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		fx.transition(s, entities.EventKYCStarted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entities.StartResult{Session: s}, nil
}

// VerifyDetails compares the worker's declared details with the ID snapshot.
// Aadhaar sessions also match date of birth and gender; a licence lookup has
// already confirmed the date of birth and its gender is not trusted.
func (u *KycUsecase) VerifyDetails(ctx context.Context, userID, sessionID uuid.UUID, declared *entities.DeclaredDetails) (*entities.VerificationSession, error) {
	if declared == nil {
		return nil, domainerrors.BadRequest("details are required")
	}

	var out *entities.VerificationSession
	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.openSession(ctx, fx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status != entities.SessionOTPVerified && s.Status != entities.SessionDLVerified {
			return invalidTransition(s.Status)
		}

		nameOK, score := u.names.Match(declared.FullName(), s.FullName.String)
		s.NameMatch = null.BoolFrom(nameOK)
		s.NameMatchScore = null.Float64From(score)

		var mismatched []string
		if !nameOK && u.cfg.NameMatchRequired {
			mismatched = append(mismatched, "name")
		}
		dob := s.DOB.String
		if s.Method == entities.MethodDL {
			s.DOBMatch = null.BoolFrom(true)
			s.GenderMatch = null.Bool{}
		} else {
			declaredGender := strings.TrimSpace(declared.Gender)
			dobOK := declared.DOB != "" && s.DOB.Valid && declared.DOB == s.DOB.String
			genderOK := declaredGender != "" && strings.EqualFold(declaredGender, strings.TrimSpace(s.Gender.String))
			s.DOBMatch = null.BoolFrom(dobOK)
			s.GenderMatch = null.BoolFrom(genderOK)
			if !dobOK {
				mismatched = append(mismatched, "date_of_birth")
			}
			if !genderOK {
				mismatched = append(mismatched, "gender")
			}
			dob = declared.DOB
		}

		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		if len(mismatched) > 0 {
			if err := u.updateSession(ctx, s); err != nil {
				return err
			}
			u.projector.DetailsMismatch(p)
			if err := u.saveProfile(ctx, p); err != nil {
				return err
			}
			return afterCommit(detailsMismatch(mismatched, score, s.Method))
		}

		s.Status = entities.SessionDetailsVerified
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		user := &entities.User{ID: userID}
		u.projector.DetailsVerified(p, user, declared, dob)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		if user.FirstName != "" {
			if err := u.users.UpdateNames(ctx, userID, user.FirstName, user.MiddleName, user.LastName); err != nil {
				return domainerrors.InternalError(err)
			}
		}
		fx.transition(s, entities.EventKYCDetailsVerified)
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Liveness runs a liveness check on selfie and records it on the
// verification record. The session status does not change; once attempts
// are exhausted further calls are rate limited until reset or expiry.
func (u *KycUsecase) Liveness(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.LivenessResult, error) {
	if len(selfie) == 0 {
		return nil, selfieRequired()
	}
	maxAttempts := u.maxAttempts()

	var (
		method   entities.VerificationMethod
		hash     string
		attempts int
	)
	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.openSession(ctx, fx, userID, sessionID)
		if err != nil {
			return err
		}
		if resume, ok := s.ResumeStatus(); ok && s.LivenessAttempts < maxAttempts {
			s.Status = resume
		}
		switch s.Status {
		case entities.SessionDetailsVerified, entities.SessionOTPVerified, entities.SessionDLVerified:
		default:
			return invalidTransition(s.Status)
		}
		if s.LivenessAttempts >= maxAttempts {
			return domainerrors.RateLimited("Liveness attempts exceeded", 0)
		}
		s.LivenessAttempts++
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		method, hash, attempts = s.Method, s.DedupeHash, s.LivenessAttempts
		return nil
	})
	if err != nil {
		return nil, err
	}

	check, err := u.gate.CheckLiveness(ctx, selfie)
	if err != nil {
		return nil, u.gate.Describe(err)
	}

	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		rec, err := u.records.GetOrCreate(ctx, userID, method)
		if err != nil {
			return domainerrors.InternalError(err)
		}
		rec.DedupeHash = hash
		rec.LivenessPass = null.BoolFrom(check.Live)
		rec.LivenessConfidence = null.Float64From(check.Confidence)
		if err := u.saveRecord(ctx, rec); err != nil {
			return err
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		u.projector.LivenessOutcome(p, check.Live)
		if err := u.saveProfile(ctx, p); err != nil {
			return err
		}
		fx.emit(entities.EventKYCLiveness, sessionID, userID, map[string]interface{}{
			"live":     check.Live,
			"attempts": attempts,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entities.LivenessResult{Live: check.Live, Confidence: check.Confidence, Attempts: attempts}, nil
}

// FaceMatch compares selfie with the ID photo. A pass marks the record
// verified, stores the selfie as the profile photo and completes the
// session; the last failed attempt fails it.
func (u *KycUsecase) FaceMatch(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.FaceMatchResult, error) {
	if len(selfie) == 0 {
		return nil, selfieRequired()
	}
	maxAttempts := u.maxAttempts()

	var idPhoto []byte
	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.openSession(ctx, fx, userID, sessionID)
		if err != nil {
			return err
		}
		if resume, ok := s.ResumeStatus(); ok && s.FaceAttempts < maxAttempts {
			s.Status = resume
		}
		if s.Status != entities.SessionDetailsVerified {
			return invalidTransition(s.Status)
		}
		if s.FaceAttempts >= maxAttempts {
			return domainerrors.RateLimited("Face match attempts exceeded", 0)
		}
		if len(s.IDPhoto) == 0 {
			return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeRestartRequired, "ID image not available. Restart KYC.", domainerrors.ErrIDPhotoMissing)
		}
		s.FaceAttempts++
		if err := u.updateSession(ctx, s); err != nil {
			return err
		}
		idPhoto = s.IDPhoto
		return nil
	})
	if err != nil {
		return nil, err
	}

	match, vendorErr := u.gate.CheckMatch(ctx, selfie, idPhoto)

	var out *entities.FaceMatchResult
	err = u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		s, err := u.lockedSession(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if s.Status != entities.SessionDetailsVerified {
			return invalidTransition(s.Status)
		}
		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		exhausted := s.FaceAttempts >= maxAttempts

		if vendorErr != nil {
			if exhausted {
				s.Status = entities.SessionFailed
				if err := u.updateSession(ctx, s); err != nil {
					return err
				}
				u.projector.FaceMatchFailed(p, true)
				if err := u.saveProfile(ctx, p); err != nil {
					return err
				}
				fx.transition(s, entities.EventKYCFailed)
			}
			return afterCommit(u.gate.Describe(vendorErr))
		}

		now := u.now()
		passed := u.gate.MeetsThreshold(match)
		rec, err := u.records.GetOrCreate(ctx, userID, s.Method)
		if err != nil {
			return domainerrors.InternalError(err)
		}
		rec.CopyMatches(s)
		rec.FaceMatchPass = null.BoolFrom(passed)
		rec.FaceMatchConfidence = null.Float64From(match.Confidence)

		if passed {
			taken, err := u.records.VerifiedByOtherUser(ctx, s.DedupeHash, userID)
			if err != nil {
				return domainerrors.InternalError(err)
			}
			if taken {
				return idAlreadyUsed()
			}
			rec.Verified = true
			rec.VerifiedAt = null.TimeFrom(now)
			if err := u.saveRecord(ctx, rec); err != nil {
				return err
			}
			s.Status = entities.SessionCompleted
			s.ClearSensitive(now)
			if err := u.updateSession(ctx, s); err != nil {
				return err
			}
			user := &entities.User{ID: userID}
			u.projector.KycVerified(p, user, selfie, now)
			if err := u.saveProfile(ctx, p); err != nil {
				return err
			}
			if err := u.users.UpdatePhoto(ctx, userID, user.Photo); err != nil {
				return domainerrors.InternalError(err)
			}
			fx.transition(s, entities.EventKYCVerified)
		} else {
			rec.Verified = false
			rec.VerifiedAt = null.Time{}
			if err := u.saveRecord(ctx, rec); err != nil {
				return err
			}
			if exhausted {
				s.Status = entities.SessionFailed
				if err := u.updateSession(ctx, s); err != nil {
					return err
				}
				fx.transition(s, entities.EventKYCFailed)
			}
			u.projector.FaceMatchFailed(p, exhausted)
			if err := u.saveProfile(ctx, p); err != nil {
				return err
			}
		}

		out = &entities.FaceMatchResult{
			Matched:    passed,
			Confidence: match.Confidence,
			Threshold:  u.gate.Threshold(),
			Attempts:   s.FaceAttempts,
			Status:     s.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset expires every open or failed session of the user, wiping their ID
// photos, and returns the profile to a restartable state. Calling it again
// changes nothing.
func (u *KycUsecase) Reset(ctx context.Context, userID uuid.UUID) error {
	return u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		sessions, err := u.sessions.ListResettable(u.uow.WithLock(ctx), userID)
		if err != nil {
			return domainerrors.InternalError(err)
		}
		if len(sessions) == 0 {
			fx.emit(entities.EventKYCReset, userID, userID, nil)
		}
		now := u.now()
		for _, s := range sessions {
			s.Expire(now)
			if err := u.updateSession(ctx, s); err != nil {
				return err
			}
			fx.transition(s, entities.EventKYCReset)
		}

		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		u.projector.KycReset(p)
		return u.saveProfile(ctx, p)
	})
}

// SweepExpired deletes sessions whose expiry is before now
func (u *KycUsecase) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := u.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, domainerrors.InternalError(err)
	}
	if n > 0 {
		logger.Info(ctx, "Expired KYC sessions swept", zap.Int64("count", n))
		u.emit(ctx, entities.DomainEvent{
			Type:    entities.EventKYCSwept,
			Payload: map[string]interface{}{"count": n},
		})
	}
	return n, nil
}

// Status returns the profile's KYC fields and the latest session per method
func (u *KycUsecase) Status(ctx context.Context, userID uuid.UUID) (*entities.KYCStatusView, error) {
	p, err := u.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &entities.KYCStatusView{
		Profile:  p,
		Sessions: map[entities.VerificationMethod]*entities.VerificationSession{},
	}
	for _, m := range []entities.VerificationMethod{entities.MethodAadhaar, entities.MethodDL} {
		s, err := u.sessions.GetLatest(ctx, userID, m)
		if errors.Is(err, domainerrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, domainerrors.InternalError(err)
		}
		view.Sessions[m] = s
	}
	return view, nil
}

// prepareStart runs the checks shared by both start operations. It returns
// the caller's unexpired active session for method, if any.
func (u *KycUsecase) prepareStart(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod, hash string) (*entities.VerificationSession, error) {
	var existing *entities.VerificationSession
	err := u.inTx(ctx, func(ctx context.Context, fx *effects) error {
		if err := u.dedupe.EnsureUnclaimed(ctx, hash, userID); err != nil {
			return err
		}

		active, err := u.sessions.GetActive(u.uow.WithLock(ctx), userID, method)
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
		case err != nil:
			return domainerrors.InternalError(err)
		case active.IsExpired(u.now()):
			active.Expire(u.now())
			if err := u.updateSession(ctx, active); err != nil {
				return err
			}
			fx.transition(active, "")
		default:
			existing = active
			return nil
		}

		p, err := u.profile(ctx, userID)
		if err != nil {
			return err
		}
		if p.IsStuck() {
			u.projector.StuckReset(p)
			return u.saveProfile(ctx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (u *KycUsecase) existingStart(s *entities.VerificationSession) *entities.StartResult {
	res := &entities.StartResult{Session: s}
	if s.Status != entities.SessionOTPSent {
		return res
	}
	sentAt := s.CreatedAt
	if s.OTPSentAt.Valid {
		sentAt = s.OTPSentAt.Time
	}
	res.AlreadySent = true
	if wait := u.cfg.ResendCooldown() - u.now().Sub(sentAt); wait > 0 {
		res.RetryAfter = ceilSeconds(wait)
	}
	return res
}

// failOTP fails the profile after the OTP attempts ran out
func (u *KycUsecase) failOTP(ctx context.Context, s *entities.VerificationSession) error {
	p, err := u.profile(ctx, s.UserID)
	if err != nil {
		return err
	}
	u.projector.OtpFailed(p, ReasonOTPAttemptsExceeded)
	return u.saveProfile(ctx, p)
}

// openSession loads and locks the caller's session, expiring it when its
// deadline has passed. The expiry is committed even though the call fails.
func (u *KycUsecase) openSession(ctx context.Context, fx *effects, userID, sessionID uuid.UUID) (*entities.VerificationSession, error) {
	s, err := u.lockedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status == entities.SessionExpired {
		return nil, sessionExpired()
	}
	if s.Status != entities.SessionCompleted && s.IsExpired(u.now()) {
		s.Expire(u.now())
		if err := u.updateSession(ctx, s); err != nil {
			return nil, err
		}
		fx.transition(s, "")
		return nil, afterCommit(sessionExpired())
	}
	return s, nil
}

func (u *KycUsecase) lockedSession(ctx context.Context, userID, sessionID uuid.UUID) (*entities.VerificationSession, error) {
	s, err := u.sessions.GetByID(u.uow.WithLock(ctx), sessionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("Invalid KYC session")
		}
		return nil, domainerrors.InternalError(err)
	}
	if s.UserID != userID {
		return nil, domainerrors.NotFound("Invalid KYC session")
	}
	return s, nil
}

func (u *KycUsecase) profile(ctx context.Context, userID uuid.UUID) (*entities.WorkerProfile, error) {
	p, err := u.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("Operator profile not found")
		}
		return nil, domainerrors.InternalError(err)
	}
	return p, nil
}

func (u *KycUsecase) saveProfile(ctx context.Context, p *entities.WorkerProfile) error {
	if err := u.profiles.Update(ctx, p); err != nil {
		return domainerrors.InternalError(err)
	}
	return nil
}

// createSession maps a concurrent start that already opened a session for
// the method to Conflict
func (u *KycUsecase) createSession(ctx context.Context, s *entities.VerificationSession) error {
	if err := u.sessions.Create(ctx, s); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return domainerrors.Conflict("Verification already in progress")
		}
		return domainerrors.InternalError(err)
	}
	return nil
}

func (u *KycUsecase) updateSession(ctx context.Context, s *entities.VerificationSession) error {
	if err := u.sessions.Update(ctx, s); err != nil {
		return domainerrors.InternalError(err)
	}
	return nil
}

func (u *KycUsecase) saveRecord(ctx context.Context, rec *entities.VerificationRecord) error {
	if err := u.records.Save(ctx, rec); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return idAlreadyUsed()
		}
		return domainerrors.InternalError(err)
	}
	return nil
}

// lockStart serializes start calls of one user. Without Redis the lock is
// skipped and per-session row locks still apply.
func (u *KycUsecase) lockStart(ctx context.Context, userID uuid.UUID) (func(), error) {
	noop := func() {}
	if u.locker == nil {
		return noop, nil
	}
	release, err := u.locker.Acquire(ctx, "kyc:start:"+userID.String(), startLockTTL)
	if errors.Is(err, redispkg.ErrLockHeld) {
		return nil, domainerrors.Conflict("Verification start already in progress")
	}
	if err != nil {
		logger.Warn(ctx, "Start lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
	return func() {
		if err := release(context.Background()); err != nil {
			logger.Warn(ctx, "Failed to release start lock", zap.Error(err))
		}
	}, nil
}

func (u *KycUsecase) maxAttempts() int {
	if u.cfg.OTPMaxAttempts > 0 {
		return u.cfg.OTPMaxAttempts
	}
	return defaultMaxAttempts
}

func (u *KycUsecase) cooldownSeconds() int {
	return u.cfg.ResendCooldownSeconds
}

func (u *KycUsecase) emit(ctx context.Context, event entities.DomainEvent) {
	if u.events != nil {
		u.events.Emit(ctx, event)
	}
}

// inTx runs fn in a unit of work and, once committed, logs and publishes
// what fn recorded. An error wrapped by afterCommit commits the work and is
// returned afterwards.
func (u *KycUsecase) inTx(ctx context.Context, fn func(ctx context.Context, fx *effects) error) error {
	fx := &effects{}
	var deferred error
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		err := fn(txCtx, fx)
		var ac *committedError
		if errors.As(err, &ac) {
			deferred = ac.err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	u.flush(ctx, fx)
	return deferred
}

func (u *KycUsecase) flush(ctx context.Context, fx *effects) {
	for _, t := range fx.transitions {
		logger.Info(ctx, "KYC session transition",
			zap.String("kyc_session_id", t.sessionID.String()),
			zap.String("user_id", t.userID.String()),
			zap.String("method", string(t.method)),
			zap.String("status", string(t.status)),
		)
		u.metrics.IncSessionTransition(string(t.method), string(t.status))
		if t.event != "" {
			u.emit(ctx, entities.DomainEvent{
				Type:        t.event,
				AggregateID: t.sessionID,
				UserID:      t.userID,
				Payload:     map[string]interface{}{"method": string(t.method), "status": string(t.status)},
			})
		}
	}
	for _, e := range fx.events {
		u.emit(ctx, e)
	}
}

type committedError struct {
	err error
}

func (e *committedError) Error() string {
	return e.err.Error()
}

func afterCommit(err error) error {
	if err == nil {
		return nil
	}
	return &committedError{err: err}
}

type transition struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	method    entities.VerificationMethod
	status    entities.SessionStatus
	event     string
}

// effects collects what a transaction did, to be announced after commit
type effects struct {
	transitions []transition
	events      []entities.DomainEvent
}

func (fx *effects) transition(s *entities.VerificationSession, event string) {
	fx.transitions = append(fx.transitions, transition{
		sessionID: s.ID,
		userID:    s.UserID,
		method:    s.Method,
		status:    s.Status,
		event:     event,
	})
}

func (fx *effects) emit(eventType string, aggregateID, userID uuid.UUID, payload map[string]interface{}) {
	fx.events = append(fx.events, entities.DomainEvent{
		Type:        eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		Payload:     payload,
	})
}

func applyIdentity(s *entities.VerificationSession, id *surepass.Identity) {
	if id == nil {
		return
	}
	s.FullName = optional(id.FullName)
	s.DOB = optional(id.DOB)
	s.Gender = optional(id.Gender)
	s.Address = id.Address
	s.IDPhoto = id.ProfileImage
	s.VendorReferenceID = optional(id.ReferenceID)
	s.VendorUniquenessID = optional(id.UniquenessID)
	if id.ClientID != "" {
		s.VendorClientID = null.StringFrom(id.ClientID)
	}
}

func vendorMessage(err error) string {
	if ve, ok := surepass.AsError(err); ok && ve.Message != "" {
		return ve.Message
	}
	return err.Error()
}

func selfieRequired() error {
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput, "selfie file required", domainerrors.ErrSelfieRequired)
}

func validAadhaar(s string) bool {
	return len(s) == 12 && isDigits(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
