// Package richtext renders Bluesky rich text (plain UTF-8 text plus
// ordered byte-range facets) into Mastodon-compatible HTML fragments, per
// spec.md §4.3.
package richtext

import (
	"sort"
	"strings"
)

// FeatureKind identifies the kind of annotation a Facet carries.
type FeatureKind int

const (
	FeatureLink FeatureKind = iota
	FeatureMention
	FeatureTag
)

// Feature is the annotation attached to a Facet's byte range.
type Feature struct {
	Kind FeatureKind
	// URI is populated for FeatureLink.
	URI string
	// DID is populated for FeatureMention. It primes the ID mapper at the
	// translator layer but never appears in the rendered HTML.
	DID string
	// Tag is populated for FeatureTag (without a leading '#').
	Tag string
}

// Facet annotates the byte range [ByteStart, ByteEnd) of the source text.
// Offsets are byte indices into the UTF-8 encoding of the text, never
// character or grapheme offsets.
type Facet struct {
	ByteStart int
	ByteEnd   int
	Feature   Feature
}

// Render converts text and its facets into a single "<p>...</p>" HTML
// fragment. Facets are processed in byte-start order; overlapping facets
// are resolved by letting the later one in sorted order win the
// overlapping region, without corrupting UTF-8 byte boundaries.
func Render(text []byte, facets []Facet) string {
	if len(text) == 0 {
		return "<p></p>"
	}

	sorted := make([]Facet, len(facets))
	copy(sorted, facets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ByteStart < sorted[j].ByteStart
	})
	// Trim each facet's end back to the start of the next non-empty facet,
	// so the later facet wins any overlapping region.
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].ByteEnd <= sorted[j].ByteStart {
				continue
			}
			if sorted[i].ByteEnd > sorted[j].ByteStart {
				sorted[i].ByteEnd = sorted[j].ByteStart
			}
			break
		}
	}

	var b strings.Builder
	b.WriteString("<p>")

	cursor := 0
	for _, f := range sorted {
		start, end := f.ByteStart, f.ByteEnd
		if end <= start {
			continue // zero-length (or inverted) facet: empty anchor omitted
		}
		if start < cursor {
			start = cursor // later facet wins the overlapping region
		}
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end || start < cursor {
			continue
		}

		b.WriteString(renderLiteral(text[cursor:start]))
		b.WriteString(renderFeature(f.Feature, text[start:end]))
		cursor = end
	}
	if cursor < len(text) {
		b.WriteString(renderLiteral(text[cursor:]))
	}

	b.WriteString("</p>")
	return b.String()
}

// renderLiteral HTML-escapes plain text and turns literal newlines into
// <br>.
func renderLiteral(b []byte) string {
	return strings.ReplaceAll(escapeHTML(string(b)), "\n", "<br>")
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

func renderFeature(f Feature, visible []byte) string {
	switch f.Kind {
	case FeatureLink:
		return `<a href="` + escapeHTML(f.URI) + `" target="_blank" rel="nofollow noopener noreferrer">` +
			escapeHTML(string(visible)) + `</a>`
	case FeatureMention:
		name := strings.TrimPrefix(string(visible), "@")
		escaped := escapeHTML(name)
		return `<span class="h-card"><a href="https://bsky.app/profile/` + escaped +
			`" class="u-url mention">@` + escaped + `</a></span>`
	case FeatureTag:
		escaped := escapeHTML(f.Tag)
		return `<a href="https://bsky.app/hashtag/` + escaped + `" class="mention hashtag">#` + escaped + `</a>`
	default:
		return escapeHTML(string(visible))
	}
}
