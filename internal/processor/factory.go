// Package processor selects concrete interpolation and upscaling backends
// by runtime capability.
package processor

import (
	"fmt"
	"os/exec"

	"framelift/internal/domain"
	"framelift/internal/port"
)

type Prefer string

const (
	PreferAuto     Prefer = "auto"
	PreferNative   Prefer = "native"
	PreferFallback Prefer = "fallback"
)

func ParsePrefer(s string) (Prefer, error) {
	switch Prefer(s) {
	case PreferAuto, PreferNative, PreferFallback:
		return Prefer(s), nil
	case "":
		return PreferAuto, nil
	}
	return "", fmt.Errorf("%w: unknown preference %q", domain.ErrInvalidParam, s)
}

// CapabilityProbe reports whether the accelerated compute backend is
// usable on this host. It must be cheap and side-effect free.
type CapabilityProbe func() bool

// DefaultProbe checks for a visible GPU via nvidia-smi.
func DefaultProbe() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// Factory builds stage implementations. Selection happens per request so a
// capability change between jobs is picked up; errors from a returned
// processor never corrupt factory state.
type Factory struct {
	probe    CapabilityProbe
	lookPath func(string) (string, error)
}

func NewFactory(probe CapabilityProbe) *Factory {
	if probe == nil {
		probe = DefaultProbe
	}
	return &Factory{
		probe:    probe,
		lookPath: exec.LookPath,
	}
}

func (f *Factory) Interpolator(prefer Prefer) (port.Interpolator, error) {
	impl, err := f.choose(prefer, interpolateNativeBin, interpolateFallbackBin)
	if err != nil {
		return nil, fmt.Errorf("interpolator: %w", err)
	}
	if impl == variantNative {
		return &nativeInterpolator{}, nil
	}
	return &fallbackInterpolator{}, nil
}

func (f *Factory) Upscaler(prefer Prefer) (port.Upscaler, error) {
	impl, err := f.choose(prefer, upscaleNativeBin, upscaleFallbackBin)
	if err != nil {
		return nil, fmt.Errorf("upscaler: %w", err)
	}
	if impl == variantNative {
		return &nativeUpscaler{}, nil
	}
	return &fallbackUpscaler{}, nil
}

type variant int

const (
	variantNative variant = iota
	variantFallback
)

// choose walks the ordered variant list allowed by prefer and returns the
// first one whose availability check passes. Forced preferences fail fast
// rather than silently substituting.
func (f *Factory) choose(prefer Prefer, nativeBin, fallbackBin string) (variant, error) {
	nativeOK := func() bool {
		if !f.probe() {
			return false
		}
		_, err := f.lookPath(nativeBin)
		return err == nil
	}
	fallbackOK := func() bool {
		_, err := f.lookPath(fallbackBin)
		return err == nil
	}

	switch prefer {
	case PreferNative:
		if !nativeOK() {
			return 0, fmt.Errorf("%w: native backend (%s)", domain.ErrCapabilityUnavailable, nativeBin)
		}
		return variantNative, nil
	case PreferFallback:
		if !fallbackOK() {
			return 0, fmt.Errorf("%w: fallback backend (%s)", domain.ErrCapabilityUnavailable, fallbackBin)
		}
		return variantFallback, nil
	case PreferAuto:
		if nativeOK() {
			return variantNative, nil
		}
		if fallbackOK() {
			return variantFallback, nil
		}
		return 0, fmt.Errorf("%w: neither %s nor %s usable", domain.ErrCapabilityUnavailable, nativeBin, fallbackBin)
	}
	return 0, fmt.Errorf("%w: unknown preference %q", domain.ErrInvalidParam, prefer)
}
