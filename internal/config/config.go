package config

// Config is the runtime configuration assembled from command-line flags.
type Config struct {
	InputPath  string
	OutputPath string
	PresetPath string
	// SavePresetPath receives the chain after it is assembled.
	SavePresetPath string
	// Effects is a comma-separated chain used when no preset is given.
	Effects string
	// MixPaths are alternate media whose first frame feeds cross-source effects.
	MixPaths string

	Width  int
	Height int
	FPS    int
	Frames int
	// Format overrides the extension of OutputPath when set.
	Format  string
	Quality int
	Encoder string
	DPI     int
	// Tick is the frame rendered for still formats.
	Tick int

	Detector  string
	TrackPath string
	// RecordTrackPath switches the run to recording a detection track.
	// "auto" writes a timestamped file into output/.
	RecordTrackPath   string
	DetectionInterval int
	EmojiFont         string

	Workers     int
	Preview     bool
	ShowStats   bool
	ListEffects bool
	LogLevel    string

	BuildVersion string
}

// Defaults returns a Config with every knob at its documented default.
func Defaults() Config {
	return Config{
		Width:             1280,
		Height:            720,
		FPS:               30,
		Frames:            90,
		Quality:           85,
		Encoder:           "auto",
		DPI:               150,
		Detector:          "contrast",
		DetectionInterval: 10,
		Workers:           4,
		LogLevel:          "info",
	}
}
