// Package producer schedules probes against a rotating URL queue, evaluates
// each response against an optional content pattern, and publishes the
// outcome to the message log (spec.md §4.5).
package producer

import (
	"log/slog"
	"regexp"
	"sort"
)

// Entry pairs a probed URL with its compiled content pattern. A nil
// Pattern means the entry carries no pattern (spec.md §3, UrlMap).
type Entry struct {
	URL     string
	Pattern *regexp.Regexp
}

// URLMap is an ordered mapping from URL to an optional compiled pattern.
// Go's map has no iteration order, so CompileURLMap sorts keys to give a
// deterministic rotation order across runs; the original's insertion order
// (preserved by its TOML loader) has no direct equivalent here, and
// ordering has no behavioral significance beyond determinism.
type URLMap []Entry

// CompileURLMap compiles every non-empty pattern string in raw. A pattern
// that fails to compile is recorded as a nil Pattern with an error log
// line; probing still proceeds for that URL with a NO_PATTERN verdict
// (spec.md §3).
func CompileURLMap(raw map[string]string, logger *slog.Logger) URLMap {
	urls := make([]string, 0, len(raw))
	for url := range raw {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	m := make(URLMap, 0, len(urls))
	for _, url := range urls {
		patternStr := raw[url]

		var pattern *regexp.Regexp
		if patternStr != "" {
			// (?m) gives ^/$ per-line semantics, matching the spec's
			// "search with multiline semantics" (spec.md §4.5).
			compiled, err := regexp.Compile("(?m)" + patternStr)
			if err != nil {
				logger.Error("producer: malformed pattern, treating url as unpatterned",
					slog.String("url", url),
					slog.String("pattern", patternStr),
					slog.String("error", err.Error()),
				)
			} else {
				pattern = compiled
			}
		}

		m = append(m, Entry{URL: url, Pattern: pattern})
	}

	return m
}

// URLs returns the URLs in rotation order, used to seed a UrlQueue.
func (m URLMap) URLs() []string {
	urls := make([]string, len(m))
	for i, e := range m {
		urls[i] = e.URL
	}

	return urls
}

// Pattern returns the compiled pattern for url, or nil if it carries none
// or is not present in the map.
func (m URLMap) Pattern(url string) *regexp.Regexp {
	for _, e := range m {
		if e.URL == url {
			return e.Pattern
		}
	}

	return nil
}
