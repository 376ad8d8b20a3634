// Package gate decides whether gated views are usable for the current
// identity. A device that has never been linked to an account is
// always fully usable offline; only a linked device that is not
// currently authenticated is locked out.
package gate

import (
	"context"

	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/log"
)

// LinkChecker answers whether a device is associated with an account
// server-side. Implemented by api.Client.
type LinkChecker interface {
	DeviceLinked(ctx context.Context, deviceID string) (bool, error)
}

// CredentialSource reports the presence of a valid local credential.
// Implemented by creds.Store.
type CredentialSource interface {
	Authenticated() bool
}

// Gate derives the access policy
type Gate struct {
	checker  LinkChecker
	creds    CredentialSource
	cache    *cache.Cache
	deviceID string
}

// New creates a gate for the given device identity
func New(checker LinkChecker, creds CredentialSource, c *cache.Cache, deviceID string) *Gate {
	return &Gate{checker: checker, creds: creds, cache: c, deviceID: deviceID}
}

// Authenticated reports whether a local credential is present
func (g *Gate) Authenticated() bool {
	return g.creds.Authenticated()
}

// Linked checks server-side whether this device is linked to any
// account. Cached for tens of seconds since linkage changes rarely.
// Connectivity failures fail open so offline devices are never bricked.
func (g *Gate) Linked(ctx context.Context) bool {
	return g.linked(ctx, false)
}

// LinkedForce bypasses the cache for the linkage check
func (g *Gate) LinkedForce(ctx context.Context) bool {
	return g.linked(ctx, true)
}

func (g *Gate) linked(ctx context.Context, force bool) bool {
	if !force {
		if v, ok := g.cache.Get(cache.KeyDeviceLinked); ok {
			return v.(bool)
		}
	}

	linked, err := g.checker.DeviceLinked(ctx, g.deviceID)
	if err != nil {
		log.Debug("Device linkage check failed, failing open: %v", err)
		return false
	}
	g.cache.Put(cache.KeyDeviceLinked, linked)
	return linked
}

// Locked reports whether gated views must be disabled: the device is
// linked to an account but no valid credential is present locally.
func (g *Gate) Locked(ctx context.Context) bool {
	if g.Authenticated() {
		return false
	}
	return g.Linked(ctx)
}
