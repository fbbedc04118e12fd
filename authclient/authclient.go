// Package authclient talks to the DCWiz auth service through the outbound
// proxy's auth surface.
package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dcwiz/appkit/config"
	"github.com/dcwiz/appkit/proxy"
)

// Scopes lists the object grants of the caller, grouped by object kind.
type Scopes struct {
	DataHalls     []int `json:"data_halls"`
	ChillerPlants []int `json:"chiller_plants"`
}

// Client wraps the auth-service endpoints.
type Client struct {
	proxy *proxy.Client
}

// New builds a Client for the auth service at authURL.
func New(authURL string) *Client {
	return &Client{proxy: proxy.New(proxy.Config{BaseURL: authURL, VerifyTLS: true})}
}

// FromConfig reads auth.url from configuration.
func FromConfig(cfg *config.Config) *Client {
	return New(cfg.String("auth.url", ""))
}

// ExtractBearer pulls the bearer token from the request's Authorization
// header, or "" when absent.
func ExtractBearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

// SelfScopes fetches the caller's object grants. An empty bearer yields
// empty scopes without a call.
func (c *Client) SelfScopes(ctx context.Context, bearer string) (Scopes, error) {
	scopes := Scopes{DataHalls: []int{}, ChillerPlants: []int{}}
	if bearer == "" {
		return scopes, nil
	}

	body, err := c.proxy.Get(ctx, proxy.SurfaceAuth, "/authz/objects", proxy.WithBearer(bearer))
	if err != nil {
		return scopes, err
	}

	var envelope struct {
		Result []string `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return scopes, fmt.Errorf("decode authz objects: %w", err)
	}

	for _, item := range envelope.Result {
		switch {
		case strings.HasPrefix(item, "data_hall."):
			if id, ok := objectID(item); ok {
				scopes.DataHalls = append(scopes.DataHalls, id)
			}
		case strings.HasPrefix(item, "chiller_plant."):
			if id, ok := objectID(item); ok {
				scopes.ChillerPlants = append(scopes.ChillerPlants, id)
			}
		}
	}
	return scopes, nil
}

func objectID(grant string) (int, bool) {
	parts := strings.Split(grant, ".")
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// SelfProfile fetches the caller's user profile. An empty bearer yields an
// empty profile without a call.
func (c *Client) SelfProfile(ctx context.Context, bearer string) (map[string]any, error) {
	if bearer == "" {
		return map[string]any{}, nil
	}
	body, err := c.proxy.Get(ctx, proxy.SurfaceAuth, "/user/profile", proxy.WithBearer(bearer))
	if err != nil {
		return nil, err
	}
	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}
