package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/roach88/replyguard/internal/action"
	"github.com/roach88/replyguard/internal/event"
)

const (
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	DefaultAPIURL  = "https://oauth.reddit.com"

	defaultTimeout = 30 * time.Second
	listingLimit   = 100
	deletedAuthor  = "[deleted]"
)

// Config holds the credentials and endpoints for a script app.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	// AuthURL and APIURL default to the public endpoints.
	AuthURL string
	APIURL  string

	// Timeout bounds token and listing requests. Replies are bounded only by
	// their context.
	Timeout time.Duration
}

// Client is an authenticated Reddit API client.
type Client struct {
	api     string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds a client. The access token is fetched on first use and
// refreshed by repeating the password grant when it expires.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.Username == "" {
		return nil, fmt.Errorf("reddit: client id and username are required")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := newHTTPClient(cfg.Timeout, cfg.UserAgent)
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.AuthURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.ReuseTokenSource(nil, &passwordSource{
		ctx:      tokenCtx,
		conf:     oc,
		username: cfg.Username,
		password: cfg.Password,
	})

	hc := oauth2.NewClient(tokenCtx, src)

	return &Client{
		api:     strings.TrimRight(cfg.APIURL, "/"),
		http:    hc,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// passwordSource runs the password grant for every new token. Script apps
// are not issued refresh tokens.
type passwordSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (p *passwordSource) Token() (*oauth2.Token, error) {
	tok, err := p.conf.PasswordCredentialsToken(p.ctx, p.username, p.password)
	if err != nil {
		return nil, fmt.Errorf("reddit token: %w", err)
	}
	return tok, nil
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string  `json:"kind"`
			Data comment `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type comment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Subreddit string `json:"subreddit"`
}

func (c comment) event() event.Event {
	ev := event.Event{
		ID:     c.ID,
		Origin: c.Subreddit,
		Body:   c.Body,
	}
	if c.Author != "" && c.Author != deletedAuthor {
		ev.Author = event.Author(c.Author)
	}
	return ev
}

// Comments returns the newest comments in sub, oldest first.
func (c *Client) Comments(ctx context.Context, sub string) ([]event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("limit", fmt.Sprint(listingLimit))
	q.Set("raw_json", "1")
	u := fmt.Sprintf("%s/r/%s/comments?%s", c.api, url.PathEscape(sub), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit comments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit comments: status %d", resp.StatusCode)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("reddit comments: decode: %w", err)
	}

	children := l.Data.Children
	out := make([]event.Event, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		ch := children[i]
		if ch.Kind != "t1" || ch.Data.ID == "" {
			continue
		}
		out = append(out, ch.Data.event())
	}
	return out, nil
}

// APIError is an error reported in the body of a successful HTTP response.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit api: %s: %s", e.Code, e.Message)
}

// Codes Reddit uses when the account may not comment on a thing.
var permissionCodes = map[string]bool{
	"THREAD_LOCKED":         true,
	"BANNED_FROM_SUBREDDIT": true,
	"SUBREDDIT_NOTALLOWED":  true,
	"USER_BLOCKED":          true,
	"TOO_OLD":               true,
	"DELETED_COMMENT":       true,
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}

// PostReply replies to the comment with the given id. It is never retried
// and has no deadline of its own. Refusals wrap action.ErrPermission.
func (c *Client) PostReply(ctx context.Context, eventID, message string) error {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t1_"+eventID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reddit reply: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("reddit reply: status %d: %w", resp.StatusCode, action.ErrPermission)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("reddit reply: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reddit reply: read: %w", err)
	}
	var cr commentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return fmt.Errorf("reddit reply: decode: %w", err)
	}
	if len(cr.JSON.Errors) == 0 {
		return nil
	}

	first := cr.JSON.Errors[0]
	apiErr := &APIError{}
	if len(first) > 0 {
		apiErr.Code, _ = first[0].(string)
	}
	if len(first) > 1 {
		apiErr.Message, _ = first[1].(string)
	}
	if permissionCodes[apiErr.Code] {
		return fmt.Errorf("%w: %w", action.ErrPermission, apiErr)
	}
	return apiErr
}
