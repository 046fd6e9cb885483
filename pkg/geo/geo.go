package geo

import "context"

// Location is a best-guess geographic origin of a client IP.
// Empty fields mean the resolver had no answer.
type Location struct {
	Country string
	City    string
}

// Resolver is the pluggable geolocation collaborator. Implementations are
// best-effort: they must not fail the surrounding request, an unknown IP
// simply yields an empty Location.
type Resolver interface {
	Locate(ctx context.Context, ip string) Location
}

// NoopResolver resolves every IP to an empty Location. Used until a real
// GeoIP backend is plugged in.
type NoopResolver struct{}

// Locate implements Resolver.
func (NoopResolver) Locate(_ context.Context, _ string) Location {
	return Location{}
}

// StaticResolver returns the same Location for every IP. Handy in tests and
// for single-region deployments behind an edge that already filters by geo.
type StaticResolver struct {
	Location Location
}

// Locate implements Resolver.
func (r StaticResolver) Locate(_ context.Context, _ string) Location {
	return r.Location
}
