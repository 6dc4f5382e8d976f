package fetch

import (
	"github.com/microcosm-cc/bluemonday"
)

// snapshotPolicy keeps enough markup for a readable offline snapshot:
// standard user content plus media and structural elements, with only
// http, https, and data URLs.
var snapshotPolicy = buildSnapshotPolicy()

func buildSnapshotPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements(
		"img", "figure", "figcaption", "picture", "source",
		"video", "audio", "details", "summary",
	)
	p.AllowAttrs("src", "srcset", "alt", "width", "height", "loading").OnElements("img", "source")
	p.AllowAttrs("src", "controls", "poster", "preload").OnElements("video", "audio")
	p.AllowAttrs("open").OnElements("details")

	p.AllowURLSchemes("http", "https", "data")
	p.RequireNoFollowOnLinks(true)

	return p
}

// Sanitize strips scripts, event handlers, and disallowed markup from an
// HTML snapshot.
func Sanitize(html string) string {
	return snapshotPolicy.Sanitize(html)
}
