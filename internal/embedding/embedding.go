// Package embedding defines the narrow provider interface the query and
// consolidation pipelines consume for vector generation. No concrete
// provider ships in this module (spec section 1: "concrete embedding
// providers... consumed via two narrow interfaces").
package embedding

import "context"

// Provider generates embedding vectors for text. Implementations live
// outside this module; callers always have a non-semantic fallback when
// IsAvailable reports false (spec section 9).
type Provider interface {
	IsAvailable() bool
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
}

// Unavailable is a Provider stub that is always unavailable, used as a safe
// default wherever no provider is configured.
type Unavailable struct{}

func (Unavailable) IsAvailable() bool                                  { return false }
func (Unavailable) Embed(context.Context, string) ([]float32, error)   { return nil, errNoProvider }
func (Unavailable) Dimension() int                                     { return 0 }
func (Unavailable) Name() string                                       { return "unavailable" }

var errNoProvider = providerError("no embedding provider configured")

type providerError string

func (e providerError) Error() string { return string(e) }
