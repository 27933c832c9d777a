package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-insights-go/internal/types"
)

var errStillRunning = errors.New("meeting still processing")

type apiClient struct {
	base string
	http *http.Client
}

type jobStatus struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio_file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/meetings/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		MeetingID string `json:"meeting_id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return out.MeetingID, nil
}

func (c *apiClient) status(ctx context.Context, id string) (jobStatus, error) {
	var st jobStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.meetingURL(id, "status"), nil)
	if err != nil {
		return st, err
	}
	err = c.do(req, &st)
	return st, err
}

func (c *apiClient) results(ctx context.Context, id string) (*types.MeetingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.meetingURL(id, "results"), nil)
	if err != nil {
		return nil, err
	}
	var res types.MeetingResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *apiClient) consent(ctx context.Context, id string, given bool) (string, error) {
	u := c.meetingURL(id, "consent-check") + "?consent_given=" + strconv.FormatBool(given)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Message string `json:"message"`
	}
	err = c.do(req, &out)
	return out.Message, err
}

// waitForCompletion polls at a constant interval until the meeting completes,
// fails, or maxPolls status checks have been made.
func (c *apiClient) waitForCompletion(ctx context.Context, id string, interval time.Duration, maxPolls uint64, onPoll func(jobStatus)) error {
	op := func() error {
		st, err := c.status(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if onPoll != nil {
			onPoll(st)
		}
		switch st.Status {
		case "completed":
			return nil
		case "failed":
			return backoff.Permanent(fmt.Errorf("processing failed: %s", st.Message))
		default:
			return errStillRunning
		}
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if maxPolls > 0 {
		b = backoff.WithMaxRetries(b, maxPolls-1)
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errStillRunning) {
			return fmt.Errorf("gave up after %d status checks: %w", maxPolls, err)
		}
		return err
	}
	return nil
}

func (c *apiClient) meetingURL(id, action string) string {
	return c.base + "/api/meetings/" + url.PathEscape(id) + "/" + action
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status=%d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
