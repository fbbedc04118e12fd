// Package proxy implements the outbound API client shared by DCWiz
// services: single and fan-out concurrent requests against named surfaces
// of one upstream, TTL-jittered response caching, and tabular merging of
// data-surface batches.
package proxy

import (
	"github.com/dcwiz/appkit/apierror"
)

// Surface names a sub-target of the upstream API. Each surface interprets
// failed responses through its own error kind; lookup is explicit, there is
// no reflective dispatch.
type Surface string

const (
	// SurfaceAPI is the plain surface with no structured error body.
	SurfaceAPI Surface = "api"
	// SurfacePlatform is the default surface of the platform API.
	SurfacePlatform Surface = "platform"
	// SurfaceData is the data API; failures carry a "detail" field and
	// responses convert to tables.
	SurfaceData Surface = "data"
	// SurfaceService is another DCWiz service; failures carry
	// message/errors bodies.
	SurfaceService Surface = "service"
	// SurfaceAuth is the auth service; 401/403 get canned messages.
	SurfaceAuth Surface = "auth"
)

// classify builds the error kind registered for the surface from a failed
// upstream call. Unknown surfaces fall back to the platform kind.
func classify(surface Surface, up apierror.Upstream) error {
	switch surface {
	case SurfaceAPI:
		return &apierror.APIError{Upstream: up}
	case SurfaceData:
		return &apierror.DataAPIError{Upstream: up}
	case SurfaceService:
		return &apierror.ServiceAPIError{Upstream: up}
	case SurfaceAuth:
		return &apierror.AuthError{Upstream: up}
	default:
		return &apierror.PlatformAPIError{Upstream: up}
	}
}
