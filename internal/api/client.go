// Package api is the client for the remote question service: starting a
// game batch, counting, listing and creating questions.
package api

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

	"kartubicara/internal/types"
)

// DefaultPageSize is the page size of the question list.
const DefaultPageSize = 10

const (
	msgRequestFailed = "Request Failed"
	msgCreateFailed  = "Request gagal"
	msgListFailed    = "Gagal memuat pertanyaan."
)

// Error is returned for any non-2xx response. Message carries the reason
// supplied by the server when the body had one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Message extracts the user-facing text of err, falling back to fallback
// for anything that is not an *Error.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the question service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service rooted at baseURL. A nil
// httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}
}

// StartGame asks for a fresh batch of questions in the given category.
func (c *Client) StartGame(ctx context.Context, categoryID int) ([]types.Question, error) {
	var out []types.Question
	body := map[string]int{"categoryId": categoryID}
	if err := c.do(ctx, http.MethodPost, "/game/start", body, &out, plainError); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	return out, nil
}

// TotalQuestions returns the number of questions in the shared pool.
func (c *Client) TotalQuestions(ctx context.Context) (int, error) {
	var out struct {
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/total_question", nil, &out, plainError); err != nil {
		return 0, fmt.Errorf("total questions: %w", err)
	}
	return out.Total, nil
}

// CreateQuestion submits a new question. The returned question is the
// server's copy, including its id and creation time.
func (c *Client) CreateQuestion(ctx context.Context, categoryID int, question string) (types.Question, error) {
	var out struct {
		Data types.Question `json:"data"`
	}
	body := struct {
		CategoryID int    `json:"categoryId"`
		Question   string `json:"question"`
	}{categoryID, question}
	if err := c.do(ctx, http.MethodPost, "/questions", body, &out, createError); err != nil {
		return types.Question{}, fmt.Errorf("create question: %w", err)
	}
	return out.Data, nil
}

// LoadQuestions fetches the page that follows lastID. A nil (or zero)
// lastID requests the first page.
func (c *Client) LoadQuestions(ctx context.Context, lastID *int, limit int) ([]types.Question, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if lastID != nil && *lastID != 0 {
		q.Set("lastId", strconv.Itoa(*lastID))
	}
	var out []types.Question
	if err := c.do(ctx, http.MethodGet, "/questions?"+q.Encode(), nil, &out, listError); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, describe func(io.Reader) string) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: describe(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorBody struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

func readErrorBody(r io.Reader) errorBody {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body)
	return body
}

func plainError(io.Reader) string {
	return msgRequestFailed
}

func listError(r io.Reader) string {
	if body := readErrorBody(r); body.Error != "" {
		return body.Error
	}
	return msgListFailed
}

func createError(r io.Reader) string {
	body := readErrorBody(r)
	switch {
	case body.Reason != "":
		return body.Reason
	case body.Error != "":
		return body.Error
	}
	return msgCreateFailed
}
