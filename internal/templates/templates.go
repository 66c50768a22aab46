// Package templates embeds the portal's HTML. Files under pages/ become routes
// by name; protected/ holds the statically routed admin and student pages.
package templates

import "embed"

//go:embed layout.html notfound.html pages protected
var FS embed.FS

// PagesDir is scanned for generated routes.
const PagesDir = "pages"
