package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Assets returns the speed test page and its script, rooted at static/
func Assets() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
