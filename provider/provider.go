// Package provider turns a dependency request into a library description.
//
// Three providers exist and are always consulted in the same order by a Chain:
// ProjectReference (local projects), PackageRepository (a package feed) and
// Unresolved (a stub that always answers). A local project therefore shadows a
// published package of the same name, and every request resolves to something.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// ErrNotFound is returned by a provider that cannot serve a request. It is a normal
// outcome: the chain moves on to the next provider.
var ErrNotFound = errors.New("library not found")

// Provider resolves one dependency under one target framework.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Resolve returns the library for name, or an error matching ErrNotFound. Any
	// other error means the provider itself failed.
	Resolve(ctx context.Context, name string, r *semver.Range, fw framework.Moniker) (*library.Description, error)
}

// Error reports a provider failure. It aborts resolution instead of falling through
// to the next provider.
type Error struct {
	Provider string
	Name     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: resolve %s: %v", e.Provider, e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Chain consults providers in order. The first result that is not ErrNotFound wins.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain returns a chain over providers. A nil logger disables logging.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{providers: providers, logger: logger}
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

// Providers returns the providers in priority order.
func (c *Chain) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

// Resolve implements Provider.
func (c *Chain) Resolve(ctx context.Context, name string, r *semver.Range, fw framework.Moniker) (*library.Description, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, err := p.Resolve(ctx, name, r, fw)
		if err == nil {
			c.logger.Debug("resolved library",
				"name", name,
				"range", r.String(),
				"framework", fw.ShortName(),
				"provider", p.Name(),
				"version", desc.Identity.Version.String())
			return desc, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return nil, &Error{Provider: p.Name(), Name: name, Err: err}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

var _ Provider = (*Chain)(nil)
