package transcription

import (
	"path/filepath"
	"strings"
)

// supportedFormats are the upload formats accepted into the pipeline.
var supportedFormats = []string{".mp3", ".wav", ".mp4", ".m4a", ".flac", ".ogg"}

// ValidateAudioFormat checks if the file format is supported.
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
