package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	GitHubAPIURL     = "https://api.github.com"
	GitHubAPIVersion = "2022-11-28"
	githubMediaType  = "application/vnd.github+json"
)

// RemoteFile is a file read from a repository.
type RemoteFile struct {
	Path    string
	SHA     string
	HTMLURL string
	Content []byte
}

// PutFileRequest creates or updates a file. SHA must hold the current revision when the file exists.
type PutFileRequest struct {
	Message string
	Content []byte
	Branch  string
	SHA     string
}

// PutFileResponse describes the stored revision.
type PutFileResponse struct {
	Path    string
	SHA     string
	HTMLURL string
}

// Repository is the subset of repository metadata used to confirm access.
type Repository struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
}

type contentResponse struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	HTMLURL  string `json:"html_url"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content contentResponse `json:"content"`
}

type githubError struct {
	Message string `json:"message"`
}

// GitHubClient talks to the GitHub contents API with a personal access token.
type GitHubClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// GitHubOption configures a [GitHubClient].
type GitHubOption func(*githubOptions)

type githubOptions struct {
	baseURL   string
	transport *http.Client
	rps       float64
}

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) GitHubOption {
	return func(o *githubOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithBaseClient sets the client whose transport the bearer auth wraps.
func WithBaseClient(c *http.Client) GitHubOption {
	return func(o *githubOptions) { o.transport = c }
}

// WithRequestsPerSecond sets the request rate. Non-positive values disable limiting.
func WithRequestsPerSecond(rps float64) GitHubOption {
	return func(o *githubOptions) { o.rps = rps }
}

// NewGitHubClient creates a client authenticating with token.
func NewGitHubClient(ctx context.Context, token string, logger *log.Logger, opts ...GitHubOption) *GitHubClient {
	o := githubOptions{baseURL: GitHubAPIURL, rps: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if o.transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.transport)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	limit := rate.Inf
	if o.rps > 0 {
		limit = rate.Limit(o.rps)
	}

	return &GitHubClient{
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		httpClient: oauth2.NewClient(ctx, src),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Repository fetches repository metadata, confirming the token can see repo.
func (c *GitHubClient) Repository(ctx context.Context, repo string) (*Repository, error) {
	var out Repository
	status, err := c.doRequest(ctx, http.MethodGet, "/repos/"+repo, nil, &out)
	if err != nil {
		switch status {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: authentication failed, check the access token", shared.ErrRemoteBackup)
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: repository %s not found or not accessible", shared.ErrRemoteBackup, repo)
		}
		return nil, err
	}
	return &out, nil
}

// GetFile reads path from branch. It returns nil without error when the file does not exist.
func (c *GitHubClient) GetFile(ctx context.Context, repo, path, branch string) (*RemoteFile, error) {
	endpoint := contentsPath(repo, path)
	if branch != "" {
		endpoint += "?ref=" + url.QueryEscape(branch)
	}

	var out contentResponse
	status, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &out)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content, err := decodeContent(out.Content, out.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", shared.ErrRemoteBackup, path, err)
	}

	return &RemoteFile{Path: out.Path, SHA: out.SHA, HTMLURL: out.HTMLURL, Content: content}, nil
}

// PutFile creates or updates path. A stale or missing SHA for an existing file is
// rejected by the remote and reported as [shared.ErrVersionConflict].
func (c *GitHubClient) PutFile(ctx context.Context, repo, path string, req PutFileRequest) (*PutFileResponse, error) {
	body := putBody{
		Message: req.Message,
		Content: base64.StdEncoding.EncodeToString(req.Content),
		Branch:  req.Branch,
		SHA:     req.SHA,
	}

	var out putResponse
	status, err := c.doRequest(ctx, http.MethodPut, contentsPath(repo, path), body, &out)
	if err != nil {
		if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%w: %w: %s changed remotely", shared.ErrRemoteBackup, shared.ErrVersionConflict, path)
		}
		return nil, err
	}

	return &PutFileResponse{Path: out.Content.Path, SHA: out.Content.SHA, HTMLURL: out.Content.HTMLURL}, nil
}

// doRequest performs a rate limited, authenticated request and decodes a JSON response into
// result. The HTTP status is returned even when err is set; it is 0 if no response arrived.
func (c *GitHubClient) doRequest(ctx context.Context, method, endpoint string, body, result any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limiter: %w", shared.ErrRemoteBackup, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %w", shared.ErrRemoteBackup, err)
	}

	req.Header.Set("Accept", githubMediaType)
	req.Header.Set("X-GitHub-Api-Version", GitHubAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("github request", "method", method, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request failed: %w", shared.ErrRemoteBackup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr githubError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("%w: GitHub API error: %d %s", shared.ErrRemoteBackup, resp.StatusCode, apiErr.Message)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %w", shared.ErrRemoteBackup, err)
		}
	}
	return resp.StatusCode, nil
}

func contentsPath(repo, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/repos/" + repo + "/contents/" + strings.Join(segments, "/")
}

func decodeContent(content, encoding string) ([]byte, error) {
	if encoding != "" && encoding != "base64" {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
}
