package usecases

import (
	"fmt"
	"net/http"

	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/infrastructure/surepass"
)

// vendorFailure converts a vendor error into the domain taxonomy.
// retryAfter is reported to the caller when the vendor rate limits.
func vendorFailure(err error, retryAfter int) error {
	ve, ok := surepass.AsError(err)
	if !ok {
		return domainerrors.VendorUnavailable("Verification provider unavailable", fmt.Errorf("%w: %w", domainerrors.ErrVendorFailure, err))
	}
	switch ve.Kind {
	case surepass.KindRateLimited:
		e := domainerrors.RateLimited("Rate limited by verification provider. Please wait and try again.", retryAfter)
		e.Err = fmt.Errorf("%w: %w", domainerrors.ErrRateLimited, err)
		return e
	case surepass.KindBadRequest:
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeBadRequest, ve.Message, fmt.Errorf("%w: %w", domainerrors.ErrBadRequest, err))
	default:
		// Unauthorized means our credentials are wrong, which the caller cannot fix
		return domainerrors.VendorUnavailable("Verification provider unavailable", fmt.Errorf("%w: %w", domainerrors.ErrVendorFailure, err))
	}
}
