package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/calehh/impact-app/app"
	"github.com/calehh/impact-app/ledger"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Client talks to the HTTP API of an impact node.
type Client struct {
	Url    string
	Token  string
	http   *http.Client
	logger cmtlog.Logger
}

func NewClient(url string, logger cmtlog.Logger) *Client {
	return &Client{
		Url:    url,
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: logger.With("module", "client"),
	}
}

func (c *Client) Submit(ctx context.Context, in state.NewSubmission) (string, error) {
	var res SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/submit", nil, in, &res); err != nil {
		return "", err
	}
	return res.Id, nil
}

// UploadProof sends a proof file and returns the URL it is stored under.
func (c *Client) UploadProof(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err = part.Write(data); err != nil {
		return "", err
	}
	if err = w.Close(); err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/proofs", nil, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var res UploadResponse
	if err = c.send(req, &res); err != nil {
		return "", err
	}
	return res.Url, nil
}

func (c *Client) Submissions(ctx context.Context, status string, page, pageSize int) (*GetSubmissionsResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	var res GetSubmissionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/submissions", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Submission(ctx context.Context, id string) (*state.Submission, error) {
	var sub state.Submission
	if err := c.do(ctx, http.MethodGet, "/api/submissions/"+url.PathEscape(id), nil, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Login exchanges the admin secret for a session token and keeps it for
// later admin calls.
func (c *Client) Login(ctx context.Context, password string) error {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/auth", nil, AuthReq{Password: password}, &res); err != nil {
		return err
	}
	c.Token = res.Token
	return nil
}

func (c *Client) Approve(ctx context.Context, id string, points int64, wait bool) (*ApproveResponse, error) {
	var q url.Values
	if wait {
		q = url.Values{"wait": []string{"true"}}
	}
	var res ApproveResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/approve", q, ApproveReq{SubmissionId: id, Points: points}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Task(ctx context.Context, id string) (*app.TaskView, error) {
	var task app.TaskView
	if err := c.do(ctx, http.MethodGet, "/api/admin/tasks/"+url.PathEscape(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Verify(ctx context.Context, id string) (*ledger.Verification, error) {
	var v ledger.Verification
	if err := c.do(ctx, http.MethodGet, "/api/admin/submissions/"+url.PathEscape(id)+"/verify", nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.JoinPath(c.Url, path)
	if err != nil {
		c.logger.Error("join url fail", "err", err)
		return nil, types.NewError(types.CodeConfig, err, "service url %q", c.Url)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request fail", "url", req.URL.String(), "err", err)
		return types.NewError(types.CodeNetwork, err, "%s %s", req.Method, req.URL.Path)
	}
	defer res.Body.Close()
	buf, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Error("read response body fail", "err", err)
		return types.NewError(types.CodeNetwork, err, "reading response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		var e ErrorResponse
		if err = json.Unmarshal(buf, &e); err != nil || e.Error == "" {
			return types.NewError(types.CodeUnknown, nil, "%s %s: %s", req.Method, req.URL.Path, res.Status)
		}
		detail := strings.TrimPrefix(e.Error, e.Code+" error: ")
		if e.TxHash != "" {
			detail = fmt.Sprintf("%s (tx %s)", detail, e.TxHash)
		}
		return &types.Error{Code: types.ParseErrorCode(e.Code), Detail: detail}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(buf, out); err != nil {
		c.logger.Error("unmarshal response body fail", "err", err)
		return types.NewError(types.CodeUnknown, err, "decoding response")
	}
	return nil
}
