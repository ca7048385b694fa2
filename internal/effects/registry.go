// Package effects implements the effect registry and every pixel processor.
//
// Each effect type owns a typed parameter struct decoded from a Params map by
// its factory; the compiled Effect mutates a frame.Buffer in place. Effects that
// carry temporal state keep it in the State slot owned by the calling instance.
package effects

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ivlev/framefx/internal/frame"
)

var (
	ErrUnknownEffect = errors.New("unknown effect type")
)

// Effect is a compiled effect instance.
type Effect interface {
	// Apply mutates buf in place. st is the slot owned by the calling
	// instance; stateless effects ignore it.
	Apply(buf *frame.Buffer, fc *frame.Context, st *State)
}

// Factory decodes resolved parameters into a compiled Effect.
type Factory func(p Params) Effect

// Entry is one registered effect type.
type Entry struct {
	Type     Type
	Label    string
	Category Category
	New      Factory
}

// Registry maps effect types to their factories. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	entries map[Type]Entry
	order   []Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Type]Entry)}
}

// Default holds every built-in effect.
var Default = newBuiltinRegistry()

// Register adds an effect type. Registering the same type twice is a
// programming error and panics.
func (r *Registry) Register(t Type, label string, category Category, f Factory) {
	if _, dup := r.entries[t]; dup {
		panic(fmt.Sprintf("effects: type %q registered twice", t))
	}
	if f == nil {
		panic(fmt.Sprintf("effects: type %q registered without a factory", t))
	}
	r.entries[t] = Entry{Type: t, Label: label, Category: category, New: f}
	r.order = append(r.order, t)
}

// Lookup returns the entry for t.
func (r *Registry) Lookup(t Type) (Entry, bool) {
	e, ok := r.entries[t]
	return e, ok
}

// IsStyle reports whether t is a registered style effect.
func (r *Registry) IsStyle(t Type) bool {
	_, ok := r.entries[t]
	return ok && IsStyle(t)
}

// All returns every entry in registration order.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.entries[t])
	}
	return out
}

// ByCategory returns entries of one category sorted by label.
func (r *Registry) ByCategory(c Category) []Entry {
	var out []Entry
	for _, t := range r.order {
		if e := r.entries[t]; e.Category == c {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Compile resolves overrides against the defaults of t and builds the effect.
func (r *Registry) Compile(t Type, overrides Params) (Effect, error) {
	e, ok := r.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, t)
	}
	return e.New(Resolve(t, overrides)), nil
}

func newBuiltinRegistry() *Registry {
	r := NewRegistry()

	r.Register(Invert, "Invert", CategoryColor, newInvert)
	r.Register(Posterize, "Posterize", CategoryColor, newPosterize)
	r.Register(Solarize, "Solarize", CategoryColor, newSolarize)
	r.Register(Duotone, "Duotone", CategoryColor, newDuotone)
	r.Register(ColorShift, "Color Shift", CategoryColor, newColorShift)
	r.Register(ChannelSwap, "Channel Swap", CategoryColor, newChannelSwap)
	r.Register(Thermal, "Thermal", CategoryColor, newThermal)
	r.Register(Vignette, "Vignette", CategoryColor, newVignette)
	r.Register(ChromaticAberration, "Chromatic Aberration", CategoryColor, newChromaticAberration)
	r.Register(Bloom, "Bloom", CategoryColor, newBloom)
	r.Register(EdgeDetect, "Edge Detect", CategoryColor, newEdgeDetect)

	r.Register(Glitch, "Digital Glitch", CategoryGlitch, newGlitch)
	r.Register(MotionSmear, "Motion Smear", CategoryGlitch, newMotionSmear)
	r.Register(BlockCorrupt, "Block Corrupt", CategoryGlitch, newBlockCorrupt)
	r.Register(PixelSort, "Pixel Sort", CategoryGlitch, newPixelSort)
	r.Register(Datamosh, "Datamosh", CategoryGlitch, newDatamosh)
	r.Register(JPEGArtifacts, "JPEG Artifacts", CategoryGlitch, newJPEGArtifacts)
	r.Register(CodecDamage, "Codec Damage", CategoryGlitch, newCodecDamage)
	r.Register(RGBChannelSeparation, "RGB Split", CategoryGlitch, newRGBSplit)
	r.Register(BlockShoving, "Block Shoving", CategoryGlitch, newBlockShoving)
	r.Register(ScreenTear, "Screen Tear", CategoryGlitch, newScreenTear)
	r.Register(FragmentGlitch, "Fragment Glitch", CategoryGlitch, newFragmentGlitch)
	r.Register(DataDestroy, "Data Destroy", CategoryGlitch, newDataDestroy)
	r.Register(Chaos, "Chaos", CategoryGlitch, newChaos)

	r.Register(Displacement, "Displacement", CategoryDistortion, newDisplacement)
	r.Register(WaveDistortion, "Wave", CategoryDistortion, newWave)
	r.Register(Twirl, "Twirl", CategoryDistortion, newTwirl)
	r.Register(Ripple, "Ripple", CategoryDistortion, newRipple)
	r.Register(HeavyDistortion, "Heavy Distortion", CategoryDistortion, newHeavyDistortion)
	r.Register(Melt, "Melt", CategoryDistortion, newMelt)
	r.Register(PerlinDistort, "Perlin Distort", CategoryDistortion, newPerlinDistort)
	r.Register(Mirror, "Mirror", CategoryDistortion, newMirror)

	r.Register(VHS, "VHS", CategoryRetro, newVHS)
	r.Register(CRT, "CRT", CategoryRetro, newCRT)
	r.Register(FilmGrain, "Film Grain", CategoryRetro, newFilmGrain)
	r.Register(Scanlines, "Scanlines", CategoryRetro, newScanlines)
	r.Register(Dither, "Dither", CategoryRetro, newDither)
	r.Register(ScanSweep, "Scan Sweep", CategoryRetro, newScanSweep)
	r.Register(PosterizeTime, "Posterize Time", CategoryRetro, newPosterizeTime)

	r.Register(Noise, "Static Noise", CategoryNoise, newNoise)
	r.Register(Bitcrush, "Bitcrush", CategoryNoise, newBitcrush)

	r.Register(Pixelate, "Pixelate", CategoryStyle, styleFactory(Pixelate))
	r.Register(Emoji, "Emoji", CategoryStyle, styleFactory(Emoji))
	r.Register(ASCII, "ASCII", CategoryStyle, styleFactory(ASCII))
	r.Register(Matrix, "Matrix", CategoryStyle, styleFactory(Matrix))
	r.Register(Halftone, "Halftone", CategoryStyle, styleFactory(Halftone))
	r.Register(Mesh3D, "3D Mesh", CategoryStyle, styleFactory(Mesh3D))

	r.Register(FacePixelate, "Face Pixelate", CategoryFace, newFacePixelate)
	r.Register(FaceBlur, "Face Blur", CategoryFace, newFaceBlur)
	r.Register(FaceColorReplace, "Face Color Replace", CategoryFace, newFaceColorReplace)
	r.Register(FaceEyeCensor, "Eye Censor Bar", CategoryFace, newEyeCensor)
	r.Register(FaceMouthCensor, "Mouth Censor Bar", CategoryFace, newMouthCensor)
	r.Register(FaceLandmarkGlitch, "Landmark Glitch", CategoryFace, newLandmarkGlitch)
	r.Register(DetectionLabels, "Detection Labels", CategoryFace, newDetectionLabels)

	return r
}
