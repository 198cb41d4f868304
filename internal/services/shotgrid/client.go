package shotgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"courier/internal/config"
)

// API defines the tracker operations used by the delivery workflow.
type API interface {
	ShotsByStatus(ctx context.Context, status string) ([]Shot, error)
	LatestVersion(ctx context.Context, shotID int64) (*Version, error)
	PublishedFileForVersion(ctx context.Context, versionID int64) (*PublishedFile, error)
	ProjectCode(ctx context.Context) (string, error)
	UpdateShotStatus(ctx context.Context, shotID int64, status string) error
}

// Client provides access to the production-tracking REST API.
type Client struct {
	baseURL          string
	projectID        int64
	projectCodeField string
	httpClient       *http.Client
	tokens           *tokenManager
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			if c.tokens != nil {
				c.tokens.httpClient = client
			}
		}
	}
}

// New creates a tracker client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Tracker.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tracker base url required")
	}
	scriptName := strings.TrimSpace(cfg.Tracker.ScriptName)
	if scriptName == "" {
		return nil, errors.New("tracker script name required")
	}
	apiKey := strings.TrimSpace(cfg.Tracker.APIKey)
	if apiKey == "" {
		return nil, errors.New("tracker api key required")
	}
	if cfg.Tracker.ProjectID <= 0 {
		return nil, errors.New("tracker project id must be positive")
	}

	timeout := time.Duration(cfg.Tracker.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	client := &Client{
		baseURL:          baseURL,
		projectID:        cfg.Tracker.ProjectID,
		projectCodeField: strings.TrimSpace(cfg.Tracker.ProjectCodeField),
		httpClient:       httpClient,
		tokens: &tokenManager{
			baseURL:    baseURL,
			scriptName: scriptName,
			apiKey:     apiKey,
			httpClient: httpClient,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ShotsByStatus returns the project's shots carrying the given status.
func (c *Client) ShotsByStatus(ctx context.Context, status string) ([]Shot, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, errors.New("status must not be empty")
	}

	params := url.Values{}
	params.Set("filter[project.Project.id]", strconv.FormatInt(c.projectID, 10))
	params.Set("filter[sg_status_list]", status)
	params.Set("fields", "code,sg_status_list,description,sg_sequence")
	params.Set("sort", "code")

	var payload listResponse
	if err := c.get(ctx, "/api/v1/entity/shots", params, &payload); err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}

	shots := make([]Shot, 0, len(payload.Data))
	for _, record := range payload.Data {
		var attrs shotAttributes
		if err := json.Unmarshal(record.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("decode shot %d: %w", record.ID, err)
		}
		shot := Shot{
			ID:          record.ID,
			Code:        attrs.Code,
			Status:      attrs.StatusList,
			Description: attrs.Description,
		}
		if rel, ok := record.Relationships["sg_sequence"]; ok {
			shot.SequenceName = rel.Data.Name
		}
		shots = append(shots, shot)
	}
	return shots, nil
}

// LatestVersion returns the most recently created version for a shot, or nil
// when the shot has no versions.
func (c *Client) LatestVersion(ctx context.Context, shotID int64) (*Version, error) {
	if shotID <= 0 {
		return nil, errors.New("shot id must be positive")
	}

	params := url.Values{}
	params.Set("filter[entity.Shot.id]", strconv.FormatInt(shotID, 10))
	params.Set("fields", "code,sg_first_frame,sg_last_frame")
	params.Set("sort", "-created_at")
	params.Set("page[size]", "1")

	var payload listResponse
	if err := c.get(ctx, "/api/v1/entity/versions", params, &payload); err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}

	record := payload.Data[0]
	var attrs versionAttributes
	if err := json.Unmarshal(record.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("decode version %d: %w", record.ID, err)
	}
	return &Version{
		ID:         record.ID,
		Code:       attrs.Code,
		FirstFrame: attrs.FirstFrame,
		LastFrame:  attrs.LastFrame,
	}, nil
}

// PublishedFileForVersion returns the frame-sequence publish attached to a
// version, or nil when nothing has been published.
func (c *Client) PublishedFileForVersion(ctx context.Context, versionID int64) (*PublishedFile, error) {
	if versionID <= 0 {
		return nil, errors.New("version id must be positive")
	}

	params := url.Values{}
	params.Set("filter[version.Version.id]", strconv.FormatInt(versionID, 10))
	params.Set("fields", "name,path,version_number,published_file_type")
	params.Set("sort", "-created_at")
	params.Set("page[size]", "1")

	var payload listResponse
	if err := c.get(ctx, "/api/v1/entity/published_files", params, &payload); err != nil {
		return nil, fmt.Errorf("query published files: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}

	record := payload.Data[0]
	var attrs publishedFileAttributes
	if err := json.Unmarshal(record.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("decode published file %d: %w", record.ID, err)
	}
	file := &PublishedFile{
		ID:            record.ID,
		Name:          attrs.Name,
		Path:          attrs.Path.LocalPath,
		VersionNumber: attrs.VersionNumber,
	}
	if rel, ok := record.Relationships["published_file_type"]; ok {
		file.FileType = rel.Data.Name
	}
	return file, nil
}

// ProjectCode reads the delivery code attribute from the configured project.
func (c *Client) ProjectCode(ctx context.Context) (string, error) {
	field := c.projectCodeField
	if field == "" {
		return "", errors.New("project code field not configured")
	}

	params := url.Values{}
	params.Set("fields", field)

	var payload singleResponse
	endpoint := fmt.Sprintf("/api/v1/entity/projects/%d", c.projectID)
	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return "", fmt.Errorf("query project: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(payload.Data.Attributes, &attrs); err != nil {
		return "", fmt.Errorf("decode project %d: %w", c.projectID, err)
	}
	code, _ := attrs[field].(string)
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("project %d has no value for %s", c.projectID, field)
	}
	return code, nil
}

// UpdateShotStatus sets the status list value on a shot.
func (c *Client) UpdateShotStatus(ctx context.Context, shotID int64, status string) error {
	if shotID <= 0 {
		return errors.New("shot id must be positive")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return errors.New("status must not be empty")
	}

	body, err := json.Marshal(map[string]string{"sg_status_list": status})
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	endpoint := fmt.Sprintf("/api/v1/entity/shots/%d", shotID)
	if err := c.do(ctx, http.MethodPut, endpoint, nil, body, nil); err != nil {
		return fmt.Errorf("update shot %d status: %w", shotID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, out)
}

// do executes an authenticated request, retrying once with a fresh token when
// the server rejects the cached one.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.accessToken(ctx)
		if err != nil {
			return err
		}

		target, err := url.Parse(c.baseURL + endpoint)
		if err != nil {
			return fmt.Errorf("parse tracker url: %w", err)
		}
		if params != nil {
			target.RawQuery = params.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return fmt.Errorf("execute request (latency=%v): %w", latency, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			c.tokens.invalidate()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return fmt.Errorf("tracker returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(detail)))
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode tracker response: %w", err)
		}
		return nil
	}
}
