// Package kakao talks to the Kakao OAuth token endpoint and the user profile API.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"lookup/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 1 << 20

// Config describes the Kakao application and endpoints.
type Config struct {
	RESTAPIKey   string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	Timeout      time.Duration
}

// Profile is the part of /v2/user/me the backend uses.
type Profile struct {
	ID       string
	Nickname string
}

// ProviderError is a rejection reported by Kakao. Payload is the decoded body
// Kakao answered with, or the raw text when it was not JSON.
type ProviderError struct {
	Status  int
	Payload any
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("kakao responded with status %d", e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrTransport wraps network failures and timeouts talking to Kakao.
var ErrTransport = errors.New("kakao unreachable")

// Provider resolves an authorization code into a Kakao profile.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Client is the HTTP implementation of Provider.
type Client struct {
	oauth      *oauth2.Config
	profileURL string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a client whose calls are bounded by cfg.Timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.RESTAPIKey,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Kakao expects client_id and client_secret in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// AuthCodeURL returns the consent page URL the app redirects users to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades an authorization code for an access token. The request is a
// form-encoded POST with grant_type=authorization_code.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, span := observability.StartClientSpan(ctx, "kakao.exchange",
		attribute.String("http.url", c.oauth.Endpoint.TokenURL))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		err = classify(err)
	}
	observability.EndSpan(span, err)
	return token, err
}

type profileResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
}

// FetchProfile loads the user behind token with a bearer-authenticated GET.
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx, span := observability.StartClientSpan(ctx, "kakao.profile",
		attribute.String("http.url", c.profileURL))

	// oauth2.Client keeps only the transport, so the deadline rides on ctx.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	profile, err := c.fetchProfile(ctx, token)
	observability.EndSpan(span, err)
	return profile, err
}

func (c *Client) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, err
	}

	httpClient := c.oauth.Client(c.withHTTPClient(ctx), token)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Status: resp.StatusCode, Payload: decodePayload(body)}
	}

	var pr profileResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, &ProviderError{Status: resp.StatusCode, Payload: decodePayload(body), Err: err}
	}
	if pr.ID == 0 {
		return nil, &ProviderError{Status: resp.StatusCode, Payload: decodePayload(body), Err: errors.New("profile without id")}
	}

	id := strconv.FormatInt(pr.ID, 10)
	nickname := pr.KakaoAccount.Profile.Nickname
	if nickname == "" {
		nickname = pr.Properties.Nickname
	}
	if nickname == "" {
		nickname = FallbackNickname(id)
	}
	return &Profile{ID: id, Nickname: nickname}, nil
}

// FallbackNickname is used when Kakao returns no nickname: KakaoUser_ followed
// by the last four characters of the id.
func FallbackNickname(id string) string {
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return "KakaoUser_" + id
}

func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &ProviderError{Status: status, Payload: decodePayload(retrieveErr.Body), Err: err}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func decodePayload(body []byte) any {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		return payload
	}
	return string(body)
}
