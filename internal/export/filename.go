package export

import (
	"strings"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
)

const (
	AppNamespace    = "elysium"
	Extension       = ".ot"
	maxFilenameSlug = 50
)

// ItemFilename names the per-item file for it: elysium-{type}-{title}.ot.
func ItemFilename(it opentime.Item) string {
	return AppNamespace + "-" + string(it.Type()) + "-" + sanitizeTitle(it.Title) + Extension
}

// SingleFilename is the single-file target for a preference value.
func SingleFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = prefs.DefaultSingleFilename
	}
	if strings.HasSuffix(strings.ToLower(name), Extension) {
		return name
	}
	return name + Extension
}

func sanitizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	gap := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			gap = true
			continue
		}
		if gap {
			b.WriteByte('-')
			gap = false
		}
		b.WriteRune(r)
	}

	var out strings.Builder
	lastHyphen := false
	for _, r := range b.String() {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out.WriteRune(r)
			lastHyphen = false
		case r == '-':
			if !lastHyphen {
				out.WriteByte('-')
			}
			lastHyphen = true
		}
	}
	slug := strings.Trim(out.String(), "-")
	if len(slug) > maxFilenameSlug {
		slug = slug[:maxFilenameSlug]
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}
