// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps "METHOD /route/template" to its required security level.
// Routes missing from the map require an access token.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health
	"GET /healthz": SecurityPublic,

	// Auth - Public
	"POST /api/v1/auth/login": SecurityPublic,

	// Equipment catalog - Public
	"GET /api/v1/equipment":      SecurityPublic,
	"GET /api/v1/equipment/{id}": SecurityPublic,

	// Equipment - Access Protected
	"GET /api/v1/equipment/stats": SecurityAccess,

	// Orders - Access Protected
	"POST /api/v1/orders/quote":       SecurityAccess,
	"POST /api/v1/orders":             SecurityAccess,
	"GET /api/v1/orders":              SecurityAccess,
	"GET /api/v1/orders/owner":        SecurityAccess,
	"GET /api/v1/orders/owner/stats":  SecurityAccess,
	"GET /api/v1/orders/{id}":         SecurityAccess,
	"PUT /api/v1/orders/{id}/status":  SecurityAccess,
	"GET /api/v1/orders/{id}/receipt": SecurityAccess,

	// Favorites - Access Protected
	"GET /api/v1/favorites":                  SecurityAccess,
	"POST /api/v1/favorites/{equipmentId}":   SecurityAccess,
	"DELETE /api/v1/favorites/{equipmentId}": SecurityAccess,

	// Users - Access Protected
	"GET /api/v1/users/{id}/contact": SecurityAccess,
}

// GetSecurityLevel returns the security level for a route template
func GetSecurityLevel(method, template string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[method+" "+template]; ok {
		return level
	}
	return SecurityAccess
}
