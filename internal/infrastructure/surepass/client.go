package surepass

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/pkg/logger"
)

const maxResponseBytes = 16 << 20

// Endpoint labels used in errors and metrics
const (
	EndpointGenerateOTP    = "generate_otp"
	EndpointSubmitOTP      = "submit_otp"
	EndpointDrivingLicence = "driving_licence"
	EndpointFaceLiveness   = "face_liveness"
	EndpointFaceMatch      = "face_match"
)

// Timeouts bounds each vendor call. Calls are never retried.
type Timeouts struct {
	GenerateOTP    time.Duration
	SubmitOTP      time.Duration
	DrivingLicence time.Duration
	FaceLiveness   time.Duration
	FaceMatch      time.Duration
}

// DefaultTimeouts are the vendor's documented upper bounds
var DefaultTimeouts = Timeouts{
	GenerateOTP:    20 * time.Second,
	SubmitOTP:      30 * time.Second,
	DrivingLicence: 30 * time.Second,
	FaceLiveness:   30 * time.Second,
	FaceMatch:      40 * time.Second,
}

// Client is a typed client of the identity verification vendor
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeouts   Timeouts
	metrics    *metrics.Metrics
}

// NewClient creates a vendor client. m may be nil.
func NewClient(baseURL, token string, timeouts Timeouts, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{},
		timeouts:   timeouts,
		metrics:    m,
	}
}

// OTPResult is the outcome of an Aadhaar OTP request
type OTPResult struct {
	ClientID string
	OTPSent  bool
}

// Identity is the biographical snapshot returned by Aadhaar and DL lookups.
// DOB is normalized to YYYY-MM-DD when parseable.
type Identity struct {
	ClientID      string
	FullName      string
	DOB           string
	Gender        string
	Address       map[string]interface{}
	ProfileImage  []byte
	ReferenceID   string
	UniquenessID  string
	LicenseNumber string
}

// LivenessResult carries the vendor's raw confidence; nil means absent
type LivenessResult struct {
	Live       bool
	Confidence *float64
}

// MatchResult carries the vendor's raw confidence; nil means absent
type MatchResult struct {
	Matched    bool
	Confidence *float64
}

// GenerateOTP asks the vendor to send an Aadhaar OTP
func (c *Client) GenerateOTP(ctx context.Context, idNumber string) (*OTPResult, error) {
	var data struct {
		ClientID string `json:"client_id"`
		OTPSent  *bool  `json:"otp_sent"`
	}
	body := map[string]string{"id_number": idNumber}
	if err := c.postJSON(ctx, EndpointGenerateOTP, "/aadhaar-v2/generate-otp", body, c.timeouts.GenerateOTP, &data); err != nil {
		return nil, err
	}
	sent := data.OTPSent == nil || *data.OTPSent
	return &OTPResult{ClientID: data.ClientID, OTPSent: sent}, nil
}

// SubmitOTP submits the worker's OTP and returns the Aadhaar identity
func (c *Client) SubmitOTP(ctx context.Context, clientID, otp string) (*Identity, error) {
	var data identityPayload
	body := map[string]string{"client_id": clientID, "otp": otp}
	if err := c.postJSON(ctx, EndpointSubmitOTP, "/aadhaar-v2/submit-otp", body, c.timeouts.SubmitOTP, &data); err != nil {
		return nil, err
	}
	id := data.identity()
	if id.ClientID == "" {
		id.ClientID = clientID
	}
	return id, nil
}

// VerifyDrivingLicence looks up a licence; dob is YYYY-MM-DD
func (c *Client) VerifyDrivingLicence(ctx context.Context, number, dob string) (*Identity, error) {
	var data identityPayload
	body := map[string]string{"id_number": number, "dob": dob}
	if err := c.postJSON(ctx, EndpointDrivingLicence, "/driving-license/driving-license", body, c.timeouts.DrivingLicence, &data); err != nil {
		return nil, err
	}
	id := data.identity()
	// DL responses key the holder's name as "name" and carry no reference id
	id.ReferenceID = data.LicenseNumber
	id.UniquenessID = data.ClientID
	return id, nil
}

// FaceLiveness checks that image shows a live person
func (c *Client) FaceLiveness(ctx context.Context, image []byte) (*LivenessResult, error) {
	var data struct {
		Live       bool  `json:"live"`
		Confidence score `json:"confidence"`
	}
	parts := []filePart{{field: "file", filename: "selfie.jpg", content: image}}
	if err := c.postMultipart(ctx, EndpointFaceLiveness, "/face/face-liveness", parts, c.timeouts.FaceLiveness, &data); err != nil {
		return nil, err
	}
	return &LivenessResult{Live: data.Live, Confidence: data.Confidence.v}, nil
}

// FaceMatch compares selfie against reference
func (c *Client) FaceMatch(ctx context.Context, selfie, reference []byte) (*MatchResult, error) {
	var data struct {
		MatchStatus bool  `json:"match_status"`
		Confidence  score `json:"confidence"`
	}
	parts := []filePart{
		{field: "selfie", filename: "selfie.jpg", content: selfie},
		{field: "id_card", filename: "id.jpg", content: reference},
	}
	if err := c.postMultipart(ctx, EndpointFaceMatch, "/face/face-match", parts, c.timeouts.FaceMatch, &data); err != nil {
		return nil, err
	}
	return &MatchResult{Matched: data.MatchStatus, Confidence: data.Confidence.v}, nil
}

type identityPayload struct {
	ClientID      string                 `json:"client_id"`
	FullName      string                 `json:"full_name"`
	Name          string                 `json:"name"`
	DOB           string                 `json:"dob"`
	Gender        string                 `json:"gender"`
	Address       map[string]interface{} `json:"address"`
	ProfileImage  string                 `json:"profile_image"`
	HasImage      bool                   `json:"has_image"`
	ReferenceID   string                 `json:"reference_id"`
	UniquenessID  string                 `json:"uniqueness_id"`
	LicenseNumber string                 `json:"license_number"`
}

func (p *identityPayload) identity() *Identity {
	name := p.FullName
	if name == "" {
		name = p.Name
	}
	var image []byte
	if p.HasImage {
		image = decodeImage(p.ProfileImage)
	}
	return &Identity{
		ClientID:      p.ClientID,
		FullName:      name,
		DOB:           normalizeDate(p.DOB),
		Gender:        strings.TrimSpace(p.Gender),
		Address:       p.Address,
		ProfileImage:  image,
		ReferenceID:   p.ReferenceID,
		UniquenessID:  p.UniquenessID,
		LicenseNumber: p.LicenseNumber,
	}
}

func decodeImage(b64 string) []byte {
	b64 = strings.TrimSpace(b64)
	if i := strings.Index(b64, "base64,"); i >= 0 {
		b64 = b64[i+len("base64,"):]
	}
	if b64 == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}
	return raw
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range []string{"02-01-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// score accepts a JSON number, a numeric string or null
type score struct {
	v *float64
}

func (s *score) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		s.v = nil
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("confidence %q: %w", raw, err)
	}
	s.v = &f
	return nil
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Detail     string          `json:"detail"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

type filePart struct {
	field    string
	filename string
	content  []byte
}

func (c *Client) postJSON(ctx context.Context, endpoint, path string, body interface{}, timeout time.Duration, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindUnknown, Endpoint: endpoint, Message: "encode request", Err: err}
	}
	return c.do(ctx, endpoint, path, "application/json", payload, timeout, out)
}

func (c *Client) postMultipart(ctx context.Context, endpoint, path string, parts []filePart, timeout time.Duration, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			return &Error{Kind: KindUnknown, Endpoint: endpoint, Message: "encode request", Err: err}
		}
		if _, err := fw.Write(p.content); err != nil {
			return &Error{Kind: KindUnknown, Endpoint: endpoint, Message: "encode request", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return &Error{Kind: KindUnknown, Endpoint: endpoint, Message: "encode request", Err: err}
	}
	return c.do(ctx, endpoint, path, w.FormDataContentType(), buf.Bytes(), timeout, out)
}

func (c *Client) do(ctx context.Context, endpoint, path, contentType string, body []byte, timeout time.Duration, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
			logger.Warn(ctx, "Vendor call failed",
				zap.String("endpoint", endpoint),
				zap.String("kind", outcome),
				zap.Int("status", statusOf(err)),
				zap.Duration("latency", time.Since(start)),
			)
		}
		c.metrics.ObserveVendorCall(endpoint, outcome, start)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindUnknown, Endpoint: endpoint, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	parseErr := json.Unmarshal(raw, &env)

	if resp.StatusCode != http.StatusOK {
		msg := env.text()
		if parseErr != nil || msg == "" {
			msg = fmt.Sprintf("vendor error %d", resp.StatusCode)
		}
		return c.vendorError(endpoint, resp.StatusCode, msg)
	}
	if parseErr != nil {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "unparseable response", Err: parseErr}
	}
	if !env.Success {
		msg := env.text()
		if msg == "" {
			msg = "vendor reported failure"
		}
		return c.vendorError(endpoint, http.StatusBadRequest, msg)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "unparseable response data", Err: err}
	}
	return nil
}

func (c *Client) vendorError(endpoint string, status int, msg string) *Error {
	e := &Error{Kind: kindForStatus(status), Endpoint: endpoint, StatusCode: status, Message: msg}
	if endpoint == EndpointFaceLiveness || endpoint == EndpointFaceMatch {
		e.Reason = faceReason(msg)
	}
	return e
}

func statusOf(err error) int {
	if ve, ok := AsError(err); ok {
		return ve.StatusCode
	}
	return 0
}
