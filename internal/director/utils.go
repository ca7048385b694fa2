package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/framefx/internal/system"
)

// TrackExtensions are the file types FindLatestTrack considers.
var TrackExtensions = []string{".yaml", ".yml"}

// GenerateTrackPath creates a timestamped track filename in dir
func GenerateTrackPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("track_%s.yaml", timestamp))
}

// FindLatestTrack finds the most recent track file in dir
func FindLatestTrack(dir string) (string, error) {
	path, err := system.FindLatest(dir, TrackExtensions)
	if err != nil {
		return "", fmt.Errorf("no track files found: %w", err)
	}
	return path, nil
}
