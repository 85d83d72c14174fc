// Package api is the client for the remote attendance service. Every call
// goes out with a bearer token from the cache; a cache miss triggers an
// authentication exchange first, and a 401 response triggers exactly one
// clear-reauthenticate-retry cycle before the failure is surfaced.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/hbeckers/punchd/internal/errors"
	"github.com/hbeckers/punchd/internal/model"
	"github.com/hbeckers/punchd/internal/store"
	"github.com/hbeckers/punchd/internal/token"
	"github.com/hbeckers/punchd/internal/util"
)

// CredentialSource supplies the API credentials. Load returns nil when none
// have been configured yet.
type CredentialSource interface {
	Load() (*store.Credentials, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *token.Cache
	creds      CredentialSource
}

type Option func(*Client)

// WithHTTPClient overrides the transport, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, tokens *token.Cache, creds CredentialSource, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		creds:      creds,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ValidateCredentials forces a fresh authentication exchange, bypassing any
// cached token.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	c.tokens.Clear()
	_, err := c.authenticate(ctx)
	return err
}

// CheckCredentials performs an authentication exchange with an explicit
// credential pair, before it has been persisted anywhere. On success the
// issued token is cached so the follow-up save does not cost a second
// round trip.
func (c *Client) CheckCredentials(ctx context.Context, creds store.Credentials) error {
	c.tokens.Clear()
	_, err := c.exchange(ctx, &creds)
	return err
}

// CreateOpenEntry creates an attendance entry with a start time and no end
// time, and returns the id the service assigned.
func (c *Client) CreateOpenEntry(ctx context.Context, employeeID, date, startTime string) (string, error) {
	body := map[string]string{
		"employee_id": employeeID,
		"date":        date,
		"start_time":  startTime,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/attendances", body, &resp); err != nil {
		return "", err
	}

	log.Info().
		Str("entryId", resp.ID).
		Str("date", date).
		Str("startTime", startTime).
		Msg("attendance entry created")

	return resp.ID, nil
}

// CloseEntry sets the end time and break minutes on an existing entry.
func (c *Client) CloseEntry(ctx context.Context, entryID, endTime string, breakMinutes int) error {
	body := map[string]any{
		"end_time":      endTime,
		"break_minutes": breakMinutes,
	}

	if err := c.do(ctx, http.MethodPatch, "/attendances/"+url.PathEscape(entryID), body, nil); err != nil {
		return err
	}

	log.Info().
		Str("entryId", entryID).
		Str("endTime", endTime).
		Msg("attendance entry closed")

	return nil
}

// ListEntries returns the employee's attendance entries between startDate and
// endDate inclusive.
func (c *Client) ListEntries(ctx context.Context, employeeID, startDate, endDate string) ([]model.AttendanceRecord, error) {
	query := url.Values{
		"employee_id": {employeeID},
		"start_date":  {startDate},
		"end_date":    {endDate},
	}

	var resp struct {
		Attendances []model.AttendanceRecord `json:"attendances"`
	}
	if err := c.do(ctx, http.MethodGet, "/attendances?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attendances, nil
}

// authenticate performs the credential exchange with the stored credentials
// and caches the result.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	creds, err := c.creds.Load()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to load credentials", err)
	}
	if creds == nil {
		return "", apperrors.NotConfigured("API credentials are not configured")
	}
	return c.exchange(ctx, creds)
}

func (c *Client) exchange(ctx context.Context, creds *store.Credentials) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to build auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NetworkFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NetworkFailure(err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Warn().
			Str("clientId", util.MaskSecret(creds.ClientID)).
			Int("status", resp.StatusCode).
			Msg("authentication rejected")
		return "", apperrors.AuthenticationFailed("Invalid API credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.RemoteAPI(fmt.Sprintf("Auth endpoint returned status %d", resp.StatusCode))
	}

	var authResp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return "", apperrors.RemoteAPI("Malformed auth response")
	}
	if authResp.Token == "" {
		return "", apperrors.RemoteAPI("Auth response contained no token")
	}

	c.tokens.Set(authResp.Token, time.Duration(authResp.ExpiresIn)*time.Second)
	log.Debug().Str("clientId", util.MaskSecret(creds.ClientID)).Msg("authenticated against attendance service")

	return authResp.Token, nil
}

// do performs one logical API operation: token lookup (authenticating on a
// miss), the request itself, and at most one re-auth retry after a 401. A
// second 401 is a hard failure so a revoked credential cannot loop.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	bearer, ok := c.tokens.Get()
	if !ok {
		var err error
		bearer, err = c.authenticate(ctx)
		if err != nil {
			return err
		}
	}

	status, respBody, err := c.doOnce(ctx, method, path, body, bearer)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.tokens.Clear()
		bearer, err = c.authenticate(ctx)
		if err != nil {
			return err
		}

		status, respBody, err = c.doOnce(ctx, method, path, body, bearer)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.tokens.Clear()
			return apperrors.AuthenticationFailed("Remote service rejected a freshly issued token")
		}
	}

	if status < 200 || status >= 300 {
		return mapStatusError(status, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.RemoteAPI("Malformed response from attendance service")
		}
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any, bearer string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, apperrors.NetworkFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.NetworkFailure(err)
	}
	return resp.StatusCode, respBody, nil
}

// mapStatusError translates a non-2xx response into the error taxonomy.
// Overlap detection is best-effort: the service reports it as a 409 or as a
// message containing "overlap", with no structured code guaranteed.
func mapStatusError(status int, body []byte) error {
	message := remoteMessage(body)

	switch {
	case status == http.StatusNotFound:
		return apperrors.New(apperrors.ErrCodeEntryNotFound, messageOr(message, "Attendance entry not found"))
	case status == http.StatusConflict,
		strings.Contains(strings.ToLower(message), "overlap"):
		return apperrors.OverlapDetected(messageOr(message, "Attendance entry overlaps an existing one"))
	default:
		return apperrors.RemoteAPI(messageOr(message, fmt.Sprintf("Attendance service returned status %d", status)))
	}
}

func remoteMessage(body []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error
}

func messageOr(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
