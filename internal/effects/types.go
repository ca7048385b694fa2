package effects

// Type identifies a registered effect algorithm.
type Type string

const (
	Invert               Type = "invert"
	Glitch               Type = "glitch"
	MotionSmear          Type = "motion-smear"
	BlockCorrupt         Type = "block-corrupt"
	PixelSort            Type = "pixel-sort"
	RGBChannelSeparation Type = "rgb-channel-separation"
	Dither               Type = "dither"
	ChromaticAberration  Type = "chromatic-aberration"
	Vignette             Type = "vignette"
	FilmGrain            Type = "film-grain"
	Scanlines            Type = "scanlines"
	EdgeDetect           Type = "edge-detect"
	Thermal              Type = "thermal"
	Mirror               Type = "mirror"
	Bloom                Type = "bloom"
	Displacement         Type = "displacement"
	WaveDistortion       Type = "wave-distortion"
	Twirl                Type = "twirl"
	Ripple               Type = "ripple"
	VHS                  Type = "vhs"
	CRT                  Type = "crt"
	Posterize            Type = "posterize"
	Solarize             Type = "solarize"
	Duotone              Type = "duotone"
	ColorShift           Type = "color-shift"
	ChannelSwap          Type = "channel-swap"
	Noise                Type = "noise"
	Pixelate             Type = "pixelate"
	Emoji                Type = "emoji"
	ASCII                Type = "ascii"
	Matrix               Type = "matrix"
	Halftone             Type = "halftone"
	BlockShoving         Type = "block-shoving"
	Datamosh             Type = "datamosh"
	Mesh3D               Type = "3d-mesh"
	FacePixelate         Type = "face-pixelate"
	FaceBlur             Type = "face-blur"
	FaceColorReplace     Type = "face-color-replace"
	FaceEyeCensor        Type = "face-eye-censor"
	FaceMouthCensor      Type = "face-mouth-censor"
	FaceLandmarkGlitch   Type = "face-landmark-glitch"
	ScreenTear           Type = "screen-tear"
	Bitcrush             Type = "bitcrush"
	FragmentGlitch       Type = "fragment-glitch"
	HeavyDistortion      Type = "heavy-distortion"
	DataDestroy          Type = "data-destroy"
	Melt                 Type = "melt"
	Chaos                Type = "chaos"
	PerlinDistort        Type = "perlin-distort"
	ScanSweep            Type = "scan-sweep"
	PosterizeTime        Type = "posterize-time"
	DetectionLabels      Type = "detection-labels"
	JPEGArtifacts        Type = "jpeg-artifacts"
	CodecDamage          Type = "codec-damage"
)

// Category groups effects for UI listing.
type Category string

const (
	CategoryGlitch     Category = "glitch"
	CategoryDistortion Category = "distortion"
	CategoryColor      Category = "color"
	CategoryRetro      Category = "retro"
	CategoryNoise      Category = "noise"
	CategoryStyle      Category = "style"
	CategoryFace       Category = "face"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryGlitch, CategoryDistortion, CategoryColor, CategoryRetro,
	CategoryNoise, CategoryStyle, CategoryFace,
}

var styleTypes = map[Type]bool{
	Pixelate: true,
	Emoji:    true,
	ASCII:    true,
	Matrix:   true,
	Halftone: true,
	Mesh3D:   true,
}

// IsStyle reports whether t replaces raster output with the glyph-grid renderer.
func IsStyle(t Type) bool {
	return styleTypes[t]
}
