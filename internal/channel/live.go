package channel

import (
	"path"
	"regexp"
	"strings"
)

var vodExtensions = map[string]bool{
	"mp4": true,
	"mkv": true,
	"avi": true,
	"mov": true,
	"flv": true,
	"wmv": true,
}

var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`S\d+E\d+`),
	regexp.MustCompile(`\sE\d+`),
	regexp.MustCompile(`(?i)Season\s*\d+`),
}

// ClassifyLive is a heuristic used to decide whether a seek bar makes sense.
// Video file extensions and episode markers in the name mean on-demand content,
// everything else is treated as live.
func ClassifyLive(c Channel) bool {
	if c.streamURL != nil {
		ext := strings.TrimPrefix(path.Ext(c.streamURL.Path), ".")
		if vodExtensions[strings.ToLower(ext)] {
			return false
		}
	}

	for _, p := range episodePatterns {
		if p.MatchString(c.name) {
			return false
		}
	}

	return true
}
