/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package generate talks to the remote texture generation service. The
// editor core is agnostic to where bitmaps come from; this client submits a
// prompt, polls the job and hands the finished bytes to the session's
// content-insertion ingress.
package generate

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the generation API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client

	// PollInterval spaces job status polls. Defaults to 2s.
	PollInterval time.Duration
}

// Options tunes the HTTP transport.
type Options struct {
	Timeout     time.Duration
	TLSInsecure bool
}

// NewClient creates a generation client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if opts.TLSInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Token:        token,
		client:       hc,
		PollInterval: 2 * time.Second,
	}
}

// Job states reported by the service.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is the server-side generation task.
type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Request describes what to generate.
type Request struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
}

// Submit starts a generation job.
func (c *Client) Submit(ctx context.Context, req Request) (*Job, error) {
	var job Job
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	path := fmt.Sprintf("/api/generate/%s", url.PathEscape(jobID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Result downloads the finished bitmap bytes of a done job.
func (c *Client) Result(ctx context.Context, jobID string) ([]byte, error) {
	path := fmt.Sprintf("/api/generate/%s/result", url.PathEscape(jobID))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server GET %s: %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// WaitForResult polls the job until it finishes and returns the bitmap
// bytes. Cancellation via ctx discards the job client-side; a result landing
// after cancellation is never applied.
func (c *Client) WaitForResult(ctx context.Context, jobID string) ([]byte, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case StatusDone:
			return c.Result(ctx, jobID)
		case StatusFailed:
			if job.Error != "" {
				return nil, fmt.Errorf("generation failed: %s", job.Error)
			}
			return nil, errors.New("generation failed")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}
