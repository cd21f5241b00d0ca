// Package web carries the console's HTML templates and static assets in the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var assets embed.FS

// Templates returns the template tree rooted at templates/.
func Templates() fs.FS {
	return mustSub("templates")
}

// Static returns the asset tree served below /static/.
func Static() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(assets, dir)
	if err != nil {
		// Only reachable if the embed directive above changes.
		panic(err)
	}
	return sub
}
