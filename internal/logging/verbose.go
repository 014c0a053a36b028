// Package logging carries tag-gated verbose logging on top of slog. Noisy
// per-iteration diagnostics (pull cursors) are logged under
// a tag and stay silent unless the tag is enabled via LOG_TAGS.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu   sync.RWMutex
	tags map[string]bool
)

func init() {
	tags = make(map[string]bool)
	if v := os.Getenv("LOG_TAGS"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags[t] = true
			}
		}
	}
}

// VerboseEnabled returns true if the given tag is enabled via LOG_TAGS.
func VerboseEnabled(tag string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return tags[tag]
}

// Enable turns on a tag at runtime.
func Enable(tag string) {
	if tag == "" {
		return
	}
	mu.Lock()
	tags[tag] = true
	mu.Unlock()
}

// VInfo logs an Info message only when the tag is enabled.
func VInfo(tag string, msg string, attrs ...slog.Attr) {
	if !VerboseEnabled(tag) {
		return
	}
	if len(attrs) == 0 {
		slog.Info(msg)
		return
	}
	pairs := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		pairs = append(pairs, a.Key, a.Value.Any())
	}
	slog.Info(msg, pairs...)
}
