package app

import (
	"log"
	"mime"
)

// Some minimal container images ship without /etc/mime.types, which
// leaves the stylesheet served as text/plain. Register what the
// embedded assets need.
func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".svg", "image/svg+xml")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: register mime type %s: %v", ext, err)
	}
}
