package app

import (
	"mime"
	"net/http"
	"sync"

	"github.com/backoffice-console/backoffice/web"
)

var registerAssetTypes = sync.OnceFunc(func() {
	// Minimal containers ship without /etc/mime.types.
	for ext, typ := range map[string]string{
		".css": "text/css; charset=utf-8",
		".js":  "text/javascript; charset=utf-8",
		".svg": "image/svg+xml",
	} {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
})

// staticHandler serves the embedded assets below /static/ with an hour of browser caching.
func staticHandler() http.Handler {
	registerAssetTypes()
	files := http.StripPrefix("/static/", http.FileServerFS(web.Static()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
