package server

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

//go:embed static
var embedded embed.FS

// staticFiles returns the asset tree served under /static and the index
// page. A non-empty dir replaces the embedded assets.
func staticFiles(dir string) (http.FileSystem, []byte, error) {
	if dir != "" {
		index, err := os.ReadFile(filepath.Join(dir, "index.html"))
		if err != nil {
			return nil, nil, err
		}
		return gin.Dir(dir, false), index, nil
	}

	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, nil, err
	}
	index, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		return nil, nil, err
	}
	return http.FS(sub), index, nil
}
