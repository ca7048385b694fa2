package effects

// Kind is the UI control used for a parameter.
type Kind string

const (
	KindSlider   Kind = "slider"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindColor    Kind = "color"
	// KindHidden values are driven by the host, not edited by users.
	KindHidden Kind = "hidden"
)

// ParamSpec describes one parameter of an effect type.
type ParamSpec struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Kind    Kind     `yaml:"kind"`
	Min     float64  `yaml:"min,omitempty"`
	Max     float64  `yaml:"max,omitempty"`
	Step    float64  `yaml:"step,omitempty"`
	Default any      `yaml:"default"`
	Options []string `yaml:"options,omitempty"`
}

func slider(key, label string, lo, hi, step, def float64) ParamSpec {
	return ParamSpec{Key: key, Label: label, Kind: KindSlider, Min: lo, Max: hi, Step: step, Default: def}
}

func check(key, label string, def bool) ParamSpec {
	return ParamSpec{Key: key, Label: label, Kind: KindCheckbox, Default: def}
}

func choice(key, label, def string, options ...string) ParamSpec {
	return ParamSpec{Key: key, Label: label, Kind: KindSelect, Default: def, Options: options}
}

func colour(key, label, def string) ParamSpec {
	return ParamSpec{Key: key, Label: label, Kind: KindColor, Default: def}
}

func hidden(key string, def float64) ParamSpec {
	return ParamSpec{Key: key, Label: key, Kind: KindHidden, Default: def}
}

func intensity(def float64) ParamSpec {
	return slider("intensity", "Intensity", 0, 100, 1, def)
}

var schemas = map[Type][]ParamSpec{
	Invert: {},
	Glitch: {intensity(50), slider("speed", "Speed", 1, 50, 1, 10)},
	MotionSmear: {
		choice("mode", "Mode", "melt", "melt", "bloom"),
		intensity(70),
		slider("momentum", "Momentum", 0, 0.99, 0.01, 0.92),
	},
	BlockCorrupt: {intensity(30), slider("blockSize", "Block Size", 4, 64, 4, 16)},
	PixelSort: {
		slider("threshold", "Threshold", 0, 255, 1, 50),
		choice("direction", "Direction", "horizontal", "horizontal", "vertical"),
	},
	RGBChannelSeparation: {
		slider("rOffset", "Red Offset", -50, 50, 1, 5),
		slider("gOffset", "Green Offset", -50, 50, 1, 0),
		slider("bOffset", "Blue Offset", -50, 50, 1, -5),
	},
	Dither:              {slider("depth", "Depth", 1, 8, 1, 4)},
	ChromaticAberration: {slider("offset", "Offset", 0, 50, 1, 5)},
	Vignette: {
		slider("intensity", "Intensity", 0, 1, 0.05, 0.5),
		slider("radius", "Radius", 0.1, 1.5, 0.05, 0.8),
	},
	FilmGrain: {intensity(30)},
	Scanlines: {
		slider("spacing", "Spacing", 2, 20, 1, 3),
		slider("opacity", "Opacity", 0, 1, 0.05, 0.4),
	},
	EdgeDetect: {slider("threshold", "Threshold", 0, 255, 1, 50), check("invert", "Invert", false)},
	Thermal:    {choice("palette", "Palette", "thermal", "thermal", "night-vision", "infrared")},
	Mirror:     {choice("mode", "Mode", "horizontal", "horizontal", "vertical", "quad", "kaleidoscope")},
	Bloom: {
		slider("threshold", "Threshold", 0, 255, 1, 200),
		slider("intensity", "Intensity", 0, 2, 0.05, 0.5),
		slider("radius", "Radius", 1, 20, 1, 3),
	},
	Displacement: {slider("scale", "Scale", 0, 100, 1, 20), check("animated", "Animated", true)},
	WaveDistortion: {
		slider("amplitude", "Amplitude", 0, 100, 1, 10),
		slider("frequency", "Frequency", 0.01, 1, 0.01, 0.1),
		choice("direction", "Direction", "horizontal", "horizontal", "vertical", "both"),
		check("animated", "Animated", true),
	},
	Twirl: {
		slider("angle", "Angle", -5, 5, 0.1, 0.5),
		slider("radius", "Radius", 0.1, 1, 0.05, 0.5),
	},
	Ripple: {
		slider("amplitude", "Amplitude", 0, 100, 1, 20),
		slider("frequency", "Frequency", 0.01, 0.5, 0.01, 0.05),
		slider("centerX", "Center X", 0, 1, 0.01, 0.5),
		slider("centerY", "Center Y", 0, 1, 0.01, 0.5),
	},
	VHS: {intensity(50)},
	CRT: {
		slider("curvature", "Curvature", 0, 1, 0.05, 0.2),
		slider("scanlines", "Scanlines", 0, 1, 0.05, 0.3),
	},
	Posterize:  {slider("levels", "Levels", 2, 32, 1, 8)},
	Solarize:   {slider("threshold", "Threshold", 0, 255, 1, 128), intensity(50)},
	Duotone:    {colour("color1", "Shadows", "#000000"), colour("color2", "Highlights", "#00ff88")},
	ColorShift: {slider("speed", "Speed", 0, 20, 0.1, 1)},
	ChannelSwap: {
		choice("swap", "Swap", "rg", "rg", "rb", "gb", "rgb"),
	},
	Noise:    {intensity(20), check("colored", "Colored", false)},
	Pixelate: {slider("density", "Density", 1, 256, 1, 64)},
	Emoji: {
		slider("density", "Density", 1, 256, 1, 48),
		choice("palette", "Palette", "standard", "standard", "nature", "faces", "symbols"),
	},
	ASCII:    {slider("density", "Density", 1, 256, 1, 80), check("colored", "Colored", true)},
	Matrix:   {slider("density", "Density", 1, 256, 1, 64)},
	Halftone: {slider("density", "Density", 1, 256, 1, 48), slider("dotScale", "Dot Scale", 0.5, 2, 0.1, 1)},
	BlockShoving: {
		choice("style", "Style", "block", "block", "fluid"),
		intensity(50),
		slider("blockSize", "Block Size", 4, 64, 4, 16),
		hidden("lastUpdate", 0),
		hidden("activeSource", -1),
	},
	Datamosh: {intensity(50), hidden("lastUpdate", 0), hidden("activeSource", -1)},
	Mesh3D: {
		slider("displacementScale", "Displacement", 0, 10, 0.5, 3),
		check("wireframe", "Wireframe", true),
		choice("mode", "Mode", "mesh", "mesh", "points", "solid"),
		slider("pointSize", "Point Size", 0.01, 0.5, 0.01, 0.08),
		slider("density", "Density", 1, 5, 1, 2),
	},
	FacePixelate: {slider("blockSize", "Block Size", 2, 64, 1, 16)},
	FaceBlur:     {slider("radius", "Radius", 1, 50, 1, 20)},
	FaceColorReplace: {
		choice("mode", "Mode", "solid", "solid", "gradient", "thermal"),
		colour("color", "Color", "#ff00ff"),
	},
	FaceEyeCensor: {
		choice("style", "Style", "solid", "solid", "pixelated", "blurred"),
		colour("color", "Color", "#000000"),
		slider("thickness", "Thickness", 0.5, 4, 0.1, 1.5),
	},
	FaceMouthCensor: {
		choice("style", "Style", "solid", "solid", "pixelated", "blurred"),
		colour("color", "Color", "#000000"),
		slider("thickness", "Thickness", 0.5, 4, 0.1, 1.2),
	},
	FaceLandmarkGlitch: {
		intensity(50),
		slider("lineCount", "Lines", 1, 50, 1, 15),
		colour("color", "Color", "#00ff88"),
	},
	ScreenTear: {
		intensity(50),
		slider("count", "Count", 1, 20, 1, 3),
		slider("offset", "Offset", 0, 200, 1, 20),
	},
	Bitcrush:       {slider("bits", "Bits", 1, 8, 1, 4), intensity(50)},
	FragmentGlitch: {intensity(50), slider("fragmentSize", "Fragment Size", 2, 64, 1, 8)},
	HeavyDistortion: {
		intensity(50),
		slider("frequency", "Frequency", 0.01, 1, 0.01, 0.15),
		slider("speed", "Speed", 0, 10, 0.1, 2),
	},
	DataDestroy: {intensity(50), slider("corruption", "Corruption", 0, 100, 1, 30)},
	Melt:        {intensity(50), choice("direction", "Direction", "down", "down", "up")},
	Chaos:       {intensity(50), slider("layers", "Layers", 1, 10, 1, 3)},
	PerlinDistort: {
		intensity(50),
		slider("scale", "Scale", 0.001, 0.1, 0.001, 0.01),
		slider("speed", "Speed", 0, 10, 0.1, 1),
	},
	ScanSweep: {
		slider("speed", "Speed", 0, 20, 0.5, 2),
		slider("count", "Count", 1, 10, 1, 3),
		slider("thickness", "Thickness", 1, 20, 1, 2),
		choice("direction", "Direction", "vertical", "vertical", "horizontal"),
	},
	PosterizeTime: {slider("fps", "FPS", 1, 60, 1, 12)},
	DetectionLabels: {
		check("showFaces", "Show Faces", true),
		check("showHands", "Show Hands", true),
		check("showPose", "Show Pose", true),
		slider("labelSize", "Label Size", 8, 24, 1, 14),
		slider("boxThickness", "Box Thickness", 1, 10, 1, 2),
		check("showConfidence", "Show Confidence", false),
	},
	JPEGArtifacts: {
		slider("quality", "Quality", 0, 100, 1, 30),
		slider("blockiness", "Blockiness", 0, 100, 1, 50),
		slider("colorBanding", "Color Banding", 0, 100, 1, 50),
	},
	CodecDamage: {
		intensity(50),
		slider("blockSize", "Block Size", 4, 64, 4, 16),
		slider("colorBleed", "Color Bleed", 0, 100, 1, 50),
		check("temporal", "Temporal", true),
	},
}

var schemaIndex = func() map[Type]map[string]ParamSpec {
	idx := make(map[Type]map[string]ParamSpec, len(schemas))
	for t, specs := range schemas {
		m := make(map[string]ParamSpec, len(specs))
		for _, s := range specs {
			m[s.Key] = s
		}
		idx[t] = m
	}
	return idx
}()

// Schema returns the parameter controls for t. Unknown types get a single intensity slider.
func Schema(t Type) []ParamSpec {
	specs, ok := schemas[t]
	if !ok {
		return []ParamSpec{intensity(50)}
	}
	out := make([]ParamSpec, len(specs))
	copy(out, specs)
	return out
}

// DefaultParams returns a fresh parameter map for t.
// Unknown types get {intensity: 50} so forward-compatible presets still load.
func DefaultParams(t Type) Params {
	specs, ok := schemas[t]
	if !ok {
		return Params{"intensity": 50.0}
	}
	p := make(Params, len(specs))
	for _, s := range specs {
		p[s.Key] = s.Default
	}
	return p
}

// Resolve merges instance overrides over the defaults of t; overrides win.
func Resolve(t Type, overrides Params) Params {
	return DefaultParams(t).Merge(overrides)
}
