package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for derived hashes. The version suffix allows the scheme
// to change without silently colliding with keys written by older builds.
const (
	DomainSlug       = "plangraph/slug/v1"
	DomainStorageKey = "plangraph/storage-key/v1"
	DomainEdge       = "plangraph/edge/v1"
)

const (
	// MaxSlugLen bounds slugs derived from free text.
	MaxSlugLen = 64

	// MaxStorageKeyLen bounds storage keys (file names, KV keys).
	MaxStorageKeyLen = 120

	hashSuffixLen = 8
)

// HashWithDomain computes SHA-256 over domain, a 0x00 separator and data.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NewID composes "<tag>:<slug>" for a node type.
func NewID(t NodeType, slug string) string {
	return t.Tag() + ":" + slug
}

// SlugOf returns the part of id after the first colon, or id itself when it
// has no tag.
func SlugOf(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// TagOf returns the part of id before the first colon.
func TagOf(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return ""
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slugify derives a stable, bounded slug from free text. Accents are folded,
// everything outside [a-z0-9] becomes a single dash, and long results are
// truncated with a content hash so distinct inputs stay distinct.
func Slugify(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, stripMarks, norm.NFC), text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")

	sum := HashWithDomain(DomainSlug, []byte(text))[:hashSuffixLen]
	if slug == "" {
		return "untitled-" + sum
	}
	if len(slug) > MaxSlugLen {
		cut := strings.TrimRight(slug[:MaxSlugLen-hashSuffixLen-1], "-")
		return cut + "-" + sum
	}
	return slug
}

// StorageKey maps a node id to a collision-safe, length-bounded key usable
// as a file name or KV key.
//
// Bytes in [a-z0-9._-] pass through (except a leading '.'); every other byte,
// including upper-case letters and '~', is written as "~XX". The mapping is
// injective. Keys that would exceed MaxStorageKeyLen are cut and suffixed with
// "~~" plus a hash of the full id; "~~" never occurs in an untruncated key.
func StorageKey(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		if isKeyByte(c) && !(i == 0 && c == '.') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('~')
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	key := b.String()
	if len(key) <= MaxStorageKeyLen {
		return key
	}
	sum := HashWithDomain(DomainStorageKey, []byte(id))[:hashSuffixLen]
	return key[:MaxStorageKeyLen-hashSuffixLen-3] + "~~" + sum
}

func isKeyByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-'
}

// EdgeKey returns a fixed-length key for an edge triple.
func EdgeKey(e Edge) string {
	data := e.From + "\x00" + e.To + "\x00" + string(e.Type)
	return HashWithDomain(DomainEdge, []byte(data))
}
