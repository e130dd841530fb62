package usecases

import (
	"context"

	"seqrview.backend/internal/infrastructure/surepass"
)

// FaceVendor is the face-check part of the verification vendor
type FaceVendor interface {
	FaceLiveness(ctx context.Context, image []byte) (*surepass.LivenessResult, error)
	FaceMatch(ctx context.Context, selfie, reference []byte) (*surepass.MatchResult, error)
}

// LivenessCheck is a liveness outcome with a 0..1 confidence
type LivenessCheck struct {
	Live       bool
	Confidence float64
}

// MatchCheck is a face-match outcome with a 0..1 confidence. Whether it
// passes is decided by MeetsThreshold.
type MatchCheck struct {
	Matched    bool
	Confidence float64
}

// FaceGate wraps the vendor face endpoints, one call each, no retries
type FaceGate struct {
	vendor    FaceVendor
	threshold float64
}

func NewFaceGate(vendor FaceVendor, threshold float64) *FaceGate {
	return &FaceGate{vendor: vendor, threshold: normalize(threshold)}
}

func (g *FaceGate) CheckLiveness(ctx context.Context, selfie []byte) (*LivenessCheck, error) {
	res, err := g.vendor.FaceLiveness(ctx, selfie)
	if err != nil {
		return nil, err
	}
	return &LivenessCheck{Live: res.Live, Confidence: NormalizeScore(res.Confidence)}, nil
}

func (g *FaceGate) CheckMatch(ctx context.Context, selfie, reference []byte) (*MatchCheck, error) {
	res, err := g.vendor.FaceMatch(ctx, selfie, reference)
	if err != nil {
		return nil, err
	}
	return &MatchCheck{Matched: res.Matched, Confidence: NormalizeScore(res.Confidence)}, nil
}

// MeetsThreshold reports whether m is a match at or above the configured threshold
func (g *FaceGate) MeetsThreshold(m *MatchCheck) bool {
	return m != nil && m.Matched && PassesThreshold(m.Confidence, g.threshold)
}

// Threshold returns the normalized match threshold
func (g *FaceGate) Threshold() float64 {
	return g.threshold
}

// Describe maps a face endpoint error to the domain taxonomy, giving
// image problems a reason the worker can act on
func (g *FaceGate) Describe(err error) error {
	ve, ok := surepass.AsError(err)
	if !ok || ve.Kind != surepass.KindBadRequest {
		return vendorFailure(err, 0)
	}
	switch ve.Reason {
	case surepass.ReasonNoFaceDetected:
		return faceVerificationFailed("No face detected. Please retake the selfie in good light.", err)
	case surepass.ReasonMultipleFaces:
		return faceVerificationFailed("More than one face detected. Please make sure only you are in the frame.", err)
	case surepass.ReasonLivenessFailed:
		return faceVerificationFailed("Liveness check failed. Please retake the selfie.", err)
	}
	return faceVerificationFailed("The image could not be processed. Please retake the selfie.", err)
}
