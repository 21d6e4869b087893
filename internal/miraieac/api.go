package miraieac

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
	"golang.org/x/oauth2"
)

// tokenEarlyExpiry refreshes the access token this long before it expires.
const tokenEarlyExpiry = 5 * time.Minute

// defaultTokenLifetime is assumed when the login response has no expiresIn.
const defaultTokenLifetime = 24 * time.Hour

type loginRequest struct {
	ClientID string `json:"clientId"`
	Password string `json:"password"`
	Scope    string `json:"scope"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
}

type loginResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type homeResponse struct {
	HomeID string          `json:"homeId"`
	Spaces []spaceResponse `json:"spaces"`
}

type spaceResponse struct {
	SpaceID   string           `json:"spaceId"`
	SpaceName string           `json:"spaceName"`
	Devices   []deviceResponse `json:"devices"`
}

type deviceResponse struct {
	DeviceID   string   `json:"deviceId"`
	DeviceName string   `json:"deviceName"`
	Topic      []string `json:"topic"`
}

type detailsResponse struct {
	DeviceID        string `json:"deviceId"`
	Brand           string `json:"brand"`
	ModelName       string `json:"modelName"`
	ModelNumber     string `json:"modelNumber"`
	FirmwareVersion string `json:"firmwareVersion"`
	MacAddress      string `json:"macAddress"`
	Category        string `json:"category"`
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// loginSource is an oauth2.TokenSource that logs in with the account
// credentials every time a fresh token is needed. The MirAIe cloud has no
// usable refresh grant, so re-login is the refresh.
type loginSource struct {
	cfg      Config
	client   *http.Client
	username string
	password string

	mu     sync.Mutex
	userID string
}

// Token performs a login. It is only called through oauth2.ReuseTokenSource,
// which serialises calls and caches the result until expiry. The
// TokenSource interface carries no context, so refreshes are bounded by
// the HTTP timeout alone.
func (s *loginSource) Token() (*oauth2.Token, error) {
	return s.login(context.Background())
}

// login posts the credentials and returns the issued token.
func (s *loginSource) login(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HTTPTimeout)
	defer cancel()

	body := loginRequest{
		ClientID: s.cfg.ClientID,
		Password: s.password,
		Scope:    s.cfg.Scope,
	}
	if strings.Contains(s.username, "@") {
		body.Email = s.username
	} else {
		body.Mobile = s.username
	}

	var resp loginResponse
	err := requests.URL(joinURL(s.cfg.AuthURL, "userManagement/login")).
		Client(s.client).
		BodyJSON(&body).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return nil, fmt.Errorf("%w: login: %w", ErrRequestFailed, err)
	}
	if resp.AccessToken == "" || resp.UserID == "" {
		return nil, fmt.Errorf("%w: login response without token", ErrAuthFailed)
	}

	s.mu.Lock()
	s.userID = resp.UserID
	s.mu.Unlock()

	lifetime := defaultTokenLifetime
	if resp.ExpiresIn > 0 {
		lifetime = time.Duration(resp.ExpiresIn) * time.Second
	}
	return &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: resp.RefreshToken,
		Expiry:       time.Now().Add(lifetime),
	}, nil
}

// UserID returns the user ID from the most recent login.
func (s *loginSource) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// cloudAPI calls the home and device management endpoints with an
// authorised client.
type cloudAPI struct {
	cfg    Config
	client *http.Client
}

// newCloudAPI wraps base so every request carries the current bearer token.
func newCloudAPI(cfg Config, base *http.Client, tokens oauth2.TokenSource) *cloudAPI {
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &cloudAPI{
		cfg: cfg,
		client: &http.Client{
			Transport: &oauth2.Transport{Source: tokens, Base: transport},
			Timeout:   cfg.HTTPTimeout,
		},
	}
}

func (a *cloudAPI) homes(ctx context.Context) ([]homeResponse, error) {
	var homes []homeResponse
	err := requests.URL(joinURL(a.cfg.APIURL, "homeManagement/homes")).
		Client(a.client).
		ToJSON(&homes).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching homes: %w", ErrRequestFailed, err)
	}
	return homes, nil
}

func (a *cloudAPI) deviceDetails(ctx context.Context, ids []string) ([]detailsResponse, error) {
	var details []detailsResponse
	err := requests.URL(joinURL(a.cfg.APIURL, "deviceManagement/devices/"+strings.Join(ids, ","))).
		Client(a.client).
		ToJSON(&details).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching device details: %w", ErrRequestFailed, err)
	}
	return details, nil
}

// deviceStatus returns the raw status document, which has the same shape
// as the broker's status messages.
func (a *cloudAPI) deviceStatus(ctx context.Context, id string) ([]byte, error) {
	var buf bytes.Buffer
	err := requests.URL(joinURL(a.cfg.APIURL, "deviceManagement/devices/"+id+"/mobile/status")).
		Client(a.client).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching status of %s: %w", ErrRequestFailed, id, err)
	}
	return buf.Bytes(), nil
}
