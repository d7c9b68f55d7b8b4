package provider

import (
	"context"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// Unresolved answers every request with a stub that has no dependencies and no
// assemblies. Placed last in a chain, it makes resolution total.
type Unresolved struct{}

// Name returns "unresolved".
func (Unresolved) Name() string {
	return "unresolved"
}

// Resolve implements Provider. The stub carries the version the range pins, if any.
func (Unresolved) Resolve(_ context.Context, name string, r *semver.Range, fw framework.Moniker) (*library.Description, error) {
	v, _ := r.Pinned()
	return &library.Description{
		Identity:     library.Identity{Name: name, Version: v},
		Framework:    fw,
		Type:         library.Unresolved,
		Dependencies: []manifest.Dependency{},
		Assemblies:   []library.Assembly{},
	}, nil
}

var _ Provider = Unresolved{}
