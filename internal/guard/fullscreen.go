package guard

import (
	"context"
	"errors"
)

var (
	ErrFullscreenUnavailable = errors.New("guard: fullscreen is not supported")
	ErrFullscreenDenied      = errors.New("guard: fullscreen request denied")
)

// FullscreenBackend is one fullscreen API variant a client may expose.
type FullscreenBackend interface {
	Name() string
	Supported() bool
	Request(ctx context.Context) error
	Exit(ctx context.Context) error
	Active() bool
}

// FullscreenController drives fullscreen through whichever backend was
// found to be supported.
type FullscreenController interface {
	Request(ctx context.Context) error
	Exit(ctx context.Context) error
	IsActive() bool
}

// ProbeFullscreen returns a controller bound to the first supported backend.
// When none is supported every request fails with ErrFullscreenUnavailable.
func ProbeFullscreen(backends ...FullscreenBackend) FullscreenController {
	for _, b := range backends {
		if b != nil && b.Supported() {
			return backendController{b: b}
		}
	}
	return unavailable{}
}

type backendController struct {
	b FullscreenBackend
}

func (c backendController) Request(ctx context.Context) error { return c.b.Request(ctx) }
func (c backendController) Exit(ctx context.Context) error    { return c.b.Exit(ctx) }
func (c backendController) IsActive() bool                    { return c.b.Active() }

// Backend returns the name of the selected backend.
func (c backendController) Backend() string { return c.b.Name() }

type unavailable struct{}

func (unavailable) Request(context.Context) error { return ErrFullscreenUnavailable }
func (unavailable) Exit(context.Context) error    { return nil }
func (unavailable) IsActive() bool                { return false }
