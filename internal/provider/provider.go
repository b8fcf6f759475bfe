// Package provider models the closed set of identity sources a user can
// log in with: a local password, Google, or Facebook.  Each variant
// implements Provider; login selects one by registry lookup, so adding a
// provider means registering a new variant, not editing the session state
// machine.
package provider

import (
	"context"

	"github.com/edugenius/edugenius-api/internal/model"
)

// Profile is the identity a provider vouches for after authenticating the
// supplied credentials.
type Profile struct {
	Email     string
	Name      string
	AvatarURL string
}

// Credentials carries every field a login request may supply; each variant
// reads only the fields it understands.
type Credentials struct {
	Email               string
	Password            string
	GoogleAccessToken   string
	FacebookAccessToken string
}

// Provider authenticates credentials against one identity source.
type Provider interface {
	Authenticate(ctx context.Context, creds Credentials) (Profile, error)
}

// Registry maps provider tags (local/google/facebook) to their variants.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register binds a provider tag to its implementation.
func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

// Lookup returns the provider registered under name, if any.
func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// RedirectMessage tells a caller which login path fits an account that was
// registered through the given provider.  Shown both on duplicate
// registration and on a wrong-provider local login.
func RedirectMessage(registerProvider string) string {
	switch registerProvider {
	case model.ProviderGoogle:
		return "Your account is connected to Google. Please log in with Google."
	case model.ProviderFacebook:
		return "Your account is connected to Facebook. Please log in with Facebook"
	default:
		return "Please log in with your original registration method."
	}
}
