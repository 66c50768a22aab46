package routes

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DuplicateRouteError reports two sources that map to the same path.
type DuplicateRouteError struct {
	Path   string
	First  string
	Second string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route %s: %s and %s", e.Path, e.First, e.Second)
}

// Generate derives one route per file under dir whose name ends in ext.
// "pages/admin/index.page.html" becomes "/admin", named "admin".
func Generate(fsys fs.FS, dir, ext string) ([]Route, error) {
	seen := make(map[string]string)
	var out []Route

	err := fs.WalkDir(fsys, dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}

		rel := file
		if dir != "." {
			rel = strings.TrimPrefix(file, dir+"/")
		}
		p := routePath(strings.TrimSuffix(rel, ext))
		if prev, ok := seen[p]; ok {
			return &DuplicateRouteError{Path: p, First: prev, Second: file}
		}
		seen[p] = file

		out = append(out, Route{
			Path:      p,
			Name:      routeName(p),
			Component: file,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func routePath(rel string) string {
	segments := strings.Split(rel, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s == "" || s == "index" {
			continue
		}
		kept = append(kept, s)
	}
	return path.Join("/", strings.Join(kept, "/"))
}

func routeName(p string) string {
	if p == "/" {
		return "index"
	}
	return path.Base(p)
}
