// Package web holds the dashboard served by the monitor.
package web

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DevEnv names the environment variable that switches the dashboard to files
// on disk. "true" or "1" selects the dist directory next to this source file.
// "false", "0" and "" keep the embedded page. Anything else is a directory.
const DevEnv = "ROUTESIM_MONITOR_DEV"

// ErrNoIndex is returned when a dashboard directory has no index.html.
var ErrNoIndex = errors.New("dashboard directory has no index.html")

//go:embed dist/*
var dist embed.FS

// Dashboard is the set of static files of the monitor page.
type Dashboard struct {
	files http.FileSystem
	dir   string
}

// Embedded returns the dashboard compiled into the binary.
func Embedded() *Dashboard {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return &Dashboard{files: http.FS(sub)}
}

// FromDir returns a dashboard read from dir on every request.
func FromDir(dir string) (*Dashboard, error) {
	_, err := os.Stat(filepath.Join(dir, "index.html"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoIndex)
	}

	return &Dashboard{files: http.Dir(dir), dir: dir}, nil
}

// FromEnv picks the dashboard according to DevEnv.
func FromEnv() (*Dashboard, error) {
	value := strings.TrimSpace(os.Getenv(DevEnv))

	switch strings.ToLower(value) {
	case "", "false", "0":
		return Embedded(), nil
	case "true", "1":
		return FromDir(sourceDist())
	default:
		return FromDir(value)
	}
}

func sourceDist() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the web package source")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

// Dir returns the directory the dashboard is read from, or "" if it is
// embedded.
func (d *Dashboard) Dir() string {
	return d.dir
}

// Handler serves the dashboard. Files from disk are never cached so that
// edits show on reload.
func (d *Dashboard) Handler() http.Handler {
	files := http.FileServer(d.files)
	if d.dir == "" {
		return files
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
