// Package public embeds the order desk's browser assets.
package public

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static returns the stylesheet and script served under /public/static/.
func Static() (fs.FS, error) {
	return fs.Sub(files, "static")
}
