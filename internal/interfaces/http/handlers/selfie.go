package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "seqrview.backend/internal/domain/errors"
)

// maxSelfieBytes bounds an uploaded selfie
const maxSelfieBytes = 5 << 20

// readSelfie returns the multipart "selfie" file, or nil when none was sent
func readSelfie(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("selfie")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, domainerrors.BadRequest("Invalid selfie upload")
	}
	if fh.Size > maxSelfieBytes {
		return nil, domainerrors.BadRequest(fmt.Sprintf("Selfie must be at most %d MB", maxSelfieBytes>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domainerrors.BadRequest("Invalid selfie upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSelfieBytes+1))
	if err != nil {
		return nil, domainerrors.BadRequest("Invalid selfie upload")
	}
	if len(data) > maxSelfieBytes {
		return nil, domainerrors.BadRequest(fmt.Sprintf("Selfie must be at most %d MB", maxSelfieBytes>>20))
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}
