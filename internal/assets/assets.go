// Package assets bundles the static files served under /assets/.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// FS holds the files served under /assets/, rooted so that
// "/assets/global-first-slide-default.png" is "global-first-slide-default.png".
var FS fs.FS

func init() {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err)
	}
	FS = sub
}
