package resource

import (
	"path"
	"strings"
	"time"
)

// Kind identifies the form in which a resource payload is fetched and
// decoded. A cache entry is only reusable for a request of the same Kind.
type Kind int

const (
	// KindInvalid is the zero value and never a valid request kind.
	KindInvalid Kind = iota
	// KindJSON decodes the payload as a JSON document.
	KindJSON
	// KindText returns the payload as a string.
	KindText
	// KindBlob returns the payload as an opaque binary object with its
	// content type.
	KindBlob
	// KindBytes returns the payload as a raw byte buffer.
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindBytes:
		return "bytes"
	}
	return "invalid"
}

// Binary reports whether the kind is fetched as raw binary data rather than
// text.
func (k Kind) Binary() bool {
	return k == KindBlob || k == KindBytes
}

// Locator is a normalized key identifying a logical resource, independent of
// whether the resource is ultimately served locally or externally.
type Locator string

// Normalize converts a resource path into its canonical Locator form.
// Leading separators and self-referencing prefixes are stripped so that
// different spellings of the same logical resource map to the same key.
// Normalize is idempotent.
func Normalize(p string) Locator {
	p = strings.TrimSpace(p)
	for {
		switch {
		case strings.HasPrefix(p, "/"):
			p = strings.TrimPrefix(p, "/")
		case strings.HasPrefix(p, "./"):
			p = strings.TrimPrefix(p, "./")
		default:
			if p == "" || p == "." {
				return ""
			}
			return Locator(path.Clean(p))
		}
	}
}

// Provenance records which source a cached value came from.
type Provenance string

const (
	// External means the value was fetched from an externally overridden
	// source through the indirection layer.
	External Provenance = "external"
	// Local means the value was fetched from local static hosting.
	Local Provenance = "local"
)

// Blob is an opaque binary payload together with the content type reported by
// the transport, when available.
type Blob struct {
	Data        []byte
	ContentType string
}

// Entry is a single cached result. Entries are immutable once created; a new
// fetch replaces the entry wholesale.
type Entry struct {
	// Payload holds the decoded value: json.RawMessage for KindJSON, string
	// for KindText, *Blob for KindBlob, []byte for KindBytes. Nil when
	// Failed is set.
	Payload any

	Kind       Kind
	Provenance Provenance
	CreatedAt  time.Time

	// Failed marks the entry as a failure record: all fetch attempts for the
	// locator were exhausted. Requests observing a failed entry must not
	// retry until the entry is explicitly cleared.
	Failed bool
}
