// Package dropbox serves the data set from a Dropbox app folder using a
// long-lived refresh token.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"recibos/internal/log"
	"recibos/internal/source"
)

// Default Dropbox endpoints.
const (
	DefaultTokenURL   = "https://api.dropbox.com/oauth2/token"
	DefaultAuthURL    = "https://www.dropbox.com/oauth2/authorize"
	DefaultContentURL = "https://content.dropboxapi.com"
	DefaultAPIURL     = "https://api.dropboxapi.com"
)

// tokenEarlyExpiry renews the access token a minute before Dropbox expires it.
const tokenEarlyExpiry = 60 * time.Second

// Config holds the app credentials and the folder holding the documents.
type Config struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	Folder       string

	// Endpoint overrides, used by tests.
	TokenURL   string
	ContentURL string
	APIURL     string
	HTTPClient *http.Client
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AppKey) == "" {
		missing = append(missing, "DROPBOX_APP_KEY")
	}
	if strings.TrimSpace(c.AppSecret) == "" {
		missing = append(missing, "DROPBOX_APP_SECRET")
	}
	if strings.TrimSpace(c.RefreshToken) == "" {
		missing = append(missing, "DROPBOX_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dropbox configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// OAuthConfig returns the oauth2 configuration of the Dropbox app.
func OAuthConfig(appKey, appSecret, tokenURL string) *oauth2.Config {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &oauth2.Config{
		ClientID:     appKey,
		ClientSecret: appSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   DefaultAuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Client is a source.Fetcher over the Dropbox HTTP API.
type Client struct {
	http       *http.Client
	folder     string
	contentURL string
	apiURL     string
	logger     *log.Logger
}

var _ source.Fetcher = (*Client)(nil)

// New builds a client. Access tokens are obtained from the refresh token on
// first use and reused until shortly before they expire.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	oc := OAuthConfig(cfg.AppKey, cfg.AppSecret, cfg.TokenURL)
	ts := oauth2.ReuseTokenSourceWithExpiry(nil, oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}), tokenEarlyExpiry)

	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = 30 * time.Second

	return &Client{
		http:       hc,
		folder:     normalizeFolder(cfg.Folder),
		contentURL: strings.TrimRight(orDefault(cfg.ContentURL, DefaultContentURL), "/"),
		apiURL:     strings.TrimRight(orDefault(cfg.APIURL, DefaultAPIURL), "/"),
		logger:     log.Default(log.ComponentDropbox),
	}, nil
}

// NewSource returns a complete source backed by Dropbox.
func NewSource(ctx context.Context, cfg Config, opts source.DecodeOptions) (*source.Documents, error) {
	c, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return source.NewDocuments(c, opts), nil
}

type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// Fetch downloads <folder>/<name>.
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	p := c.folder + "/" + strings.TrimLeft(name, "/")
	arg, err := json.Marshal(map[string]string{"path": p})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/2/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", p, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("download "+p, resp.StatusCode, body)
	}
	c.logger.DebugContext(ctx, "Downloaded document", log.FieldDocument, p, "bytes", len(body), log.FieldDuration, time.Since(start).Milliseconds())
	return body, nil
}

type listFolderResponse struct {
	Entries []struct {
		Tag  string `json:".tag"`
		Name string `json:"name"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// List returns the file names in the folder, following pagination.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var names []string
	resp, err := c.listCall(ctx, "/2/files/list_folder", map[string]any{"path": c.folder, "recursive": false})
	for {
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entries {
			if e.Tag == "file" {
				names = append(names, e.Name)
			}
		}
		if !resp.HasMore {
			break
		}
		resp, err = c.listCall(ctx, "/2/files/list_folder/continue", map[string]any{"cursor": resp.Cursor})
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) listCall(ctx context.Context, endpoint string, payload map[string]any) (listFolderResponse, error) {
	var out listFolderResponse
	b, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("list folder %s: %w", c.folder, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read list folder: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, c.statusError("list folder "+c.folder, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode list folder: %w", err)
	}
	return out, nil
}

// statusError maps Dropbox "path/not_found" responses to source.ErrNotFound.
func (c *Client) statusError(op string, status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	summary := ae.ErrorSummary
	if summary == "" {
		summary = strings.TrimSpace(string(body))
	}
	if status == http.StatusConflict && strings.Contains(summary, "not_found") {
		return fmt.Errorf("%s: %w", op, source.ErrNotFound)
	}
	return fmt.Errorf("%s: status %d: %s", op, status, summary)
}

// IsAuthError reports whether err came from the token endpoint.
func IsAuthError(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}

func normalizeFolder(f string) string {
	f = strings.TrimSpace(f)
	if f == "" || f == "/" {
		return ""
	}
	return "/" + strings.Trim(f, "/")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
