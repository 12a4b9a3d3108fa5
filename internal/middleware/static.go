// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
)

// StaticCache adds Cache-Control headers for static files.
func StaticCache(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			next.ServeHTTP(w, r)
		})
	}
}

// Static serves files from dir. Directory listings are not served; a
// directory request is answered with its index.html or 404.
func Static(dir string, maxAge int) http.Handler {
	fs := http.FileServer(noListingFS{http.Dir(dir)})
	return StaticCache(maxAge)(fs)
}

// noListingFS hides directories that have no index.html.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !stat.IsDir() {
		return f, nil
	}

	index := path.Join(strings.TrimSuffix(name, "/"), "index.html")
	idx, err := n.fs.Open(index)
	if err != nil {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	_ = idx.Close()
	return f, nil
}
