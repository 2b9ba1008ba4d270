package opentime

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const maxSlugLen = 40

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

// Generator derives item ids of the form {prefix}_{slug}_{suffix}. The suffix is a
// lower-case ULID: time ordered, and unique within a millisecond through monotonic entropy.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewGenerator returns a generator using clock and entropy source r. Nil values fall back
// to the wall clock and crypto/rand.
func NewGenerator(clock func() time.Time, r io.Reader) *Generator {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if r == nil {
		r = randReader{}
	}
	return &Generator{now: clock, entropy: ulid.Monotonic(r, 0)}
}

var defaultGenerator = NewGenerator(nil, nil)

// NewID generates an id with the package default generator.
func NewID(prefix, title string) string {
	return defaultGenerator.NewID(prefix, title)
}

func (g *Generator) NewID(prefix, title string) string {
	return prefix + "_" + Slug(title) + "_" + g.suffix()
}

func (g *Generator) suffix() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		// monotonic entropy overflowed inside one millisecond
		id = ulid.Make()
	}
	return strings.ToLower(id.String())
}

// Slug lower-cases s, collapses every non-alphanumeric run to one hyphen, trims
// hyphens at both ends and truncates to 40 bytes.
func Slug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLen {
		out = out[:maxSlugLen]
	}
	return out
}
