// Package api is the HTTP client of the feedbackd server used by the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/filex"
)

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	body := map[string]string{"username": username, "email": email, "password": password}

	var resp struct {
		User *User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/register", body, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, *User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return "", nil, err
	}

	c.SetToken(resp.Token)
	return resp.Token, resp.User, nil
}

func (c *Client) Upload(ctx context.Context, in FeedbackInput) (*Feedback, error) {
	return c.sendForm(ctx, http.MethodPost, "/feedback/upload", in)
}

func (c *Client) Update(ctx context.Context, id string, in FeedbackInput) (*Feedback, error) {
	return c.sendForm(ctx, http.MethodPatch, "/feedback/"+url.PathEscape(id), in)
}

func (c *Client) List(ctx context.Context) ([]Feedback, error) {
	var items []Feedback
	if err := c.do(ctx, http.MethodGet, "/feedback", nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Feedback, error) {
	var item Feedback
	if err := c.do(ctx, http.MethodGet, "/feedback/"+url.PathEscape(id), nil, "", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/feedback/"+url.PathEscape(id), nil, "", nil)
}

func (c *Client) sendForm(ctx context.Context, method, path string, in FeedbackInput) (*Feedback, error) {
	for _, p := range []string{in.VideoPath, in.AudioPath} {
		if p == "" {
			continue
		}
		ok, err := filex.Exists(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", p, os.ErrNotExist)
		}
	}

	body, contentType := formBody(in)
	defer body.Close()

	var resp struct {
		Feedback *Feedback `json:"feedback"`
	}
	if err := c.do(ctx, method, path, body, contentType, &resp); err != nil {
		return nil, err
	}
	return resp.Feedback, nil
}

// formBody streams the multipart form through a pipe so media files are not
// loaded into memory.
func formBody(in FeedbackInput) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, in))
	}()

	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, in FeedbackInput) error {
	if in.Rating != nil {
		if err := mw.WriteField("rating", strconv.FormatFloat(*in.Rating, 'f', -1, 64)); err != nil {
			return err
		}
	}
	if in.Comment != nil {
		if err := mw.WriteField("feedback", *in.Comment); err != nil {
			return err
		}
	}
	for _, f := range []struct{ part, path string }{
		{common.MediaVideo, in.VideoPath},
		{common.MediaAudio, in.AudioPath},
	} {
		if f.path == "" {
			continue
		}
		if err := writeFile(mw, f.part, f.path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, part, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w, err := mw.CreateFormFile(part, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, file)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: body.Message}
}
