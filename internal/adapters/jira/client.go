/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

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

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// searchFields are the only fields the census needs.
var searchFields = []string{"key", "created", "resolutiondate"}

// APIError is a non-2xx answer from Jira.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira api status=%d body=%s", e.Status, e.Body)
}

func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type Client struct {
	baseURL  string
	token    string
	user     string
	pass     string
	apiVer   string
	pageSize int
	http     *http.Client
	log      zerolog.Logger
	backoff  func() backoff.BackOff
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	pageSize := cfg.JiraPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  cfg.JiraBaseURL,
		token:    cfg.JiraPAT,
		user:     cfg.JiraUsername,
		pass:     cfg.JiraPassword,
		apiVer:   cfg.JiraAPIVersion,
		pageSize: pageSize,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		log:      log.With().Str("component", "jira").Logger(),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			return backoff.WithMaxRetries(b, 2)
		},
	}
}

type searchResponse struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Issues     []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Created        string  `json:"created"`
			ResolutionDate *string `json:"resolutiondate"`
		} `json:"fields"`
	} `json:"issues"`
}

// SearchIssues runs jql and returns every matching issue, following pagination.
// Category is left empty; the caller knows which query it ran.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, errors.New("jira: empty jql")
	}
	var out []domain.Issue
	startAt := 0
	for {
		page, err := c.search(ctx, jql, startAt, c.pageSize, searchFields)
		if err != nil {
			return nil, err
		}
		for _, it := range page.Issues {
			is, err := toIssue(it.ID, it.Fields.Created, it.Fields.ResolutionDate)
			if err != nil {
				return nil, fmt.Errorf("jira: issue %s: %w", it.Key, err)
			}
			out = append(out, is)
		}
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	c.log.Debug().Int("issues", len(out)).Msg("jira search done")
	return out, nil
}

// Count returns the server-side total for jql without fetching any issue.
func (c *Client) Count(ctx context.Context, jql string) (int, error) {
	if strings.TrimSpace(jql) == "" {
		return 0, errors.New("jira: empty jql")
	}
	page, err := c.search(ctx, jql, 0, 0, []string{"key"})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

func (c *Client) search(ctx context.Context, jql string, startAt, max int, fields []string) (*searchResponse, error) {
	var page searchResponse
	if c.apiVer == "2" {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(max))
		q.Set("fields", strings.Join(fields, ","))
		u := c.apiURL("/rest/api/2/search", q)
		if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, err
		}
		return &page, nil
	}
	// default to v3
	body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max, "fields": fields}
	u := c.apiURL("/rest/api/3/search", nil)
	if err := c.doJSON(ctx, http.MethodPost, u, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func toIssue(id, created string, resolved *string) (domain.Issue, error) {
	if id == "" {
		return domain.Issue{}, errors.New("missing id")
	}
	createdOn, err := domain.ParseDate(created)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("created: %w", err)
	}
	is := domain.Issue{ID: id, CreatedOn: createdOn}
	if resolved != nil && strings.TrimSpace(*resolved) != "" {
		r, err := domain.ParseDate(*resolved)
		if err != nil {
			return domain.Issue{}, fmt.Errorf("resolutiondate: %w", err)
		}
		is.ResolvedOn = &r
	}
	return is, nil
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" && c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
}

// doJSON sends the request and decodes the answer into out. Network errors, 429 and 5xx
// are retried with exponential backoff; anything else fails immediately.
func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
	if c.baseURL == "" {
		return errors.New("jira: empty baseURL")
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	op := func() error {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, r)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.authorize(req)
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			if apiErr.retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("jira: decode response: %w", err))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", wait).Str("method", method).Msg("jira request failed, retrying")
	}
	return backoff.RetryNotify(op, backoff.WithContext(c.backoff(), ctx), notify)
}
