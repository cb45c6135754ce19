package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed ui/*
var uiFS embed.FS

// staticHandler serves the embedded settings page.
func staticHandler() http.Handler {
	subFS, _ := fs.Sub(uiFS, "ui")
	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		// Unknown paths get the settings page
		if _, err := fs.Stat(subFS, path[1:]); err != nil {
			r.URL.Path = "/"
		}

		fileServer.ServeHTTP(w, r)
	})
}
