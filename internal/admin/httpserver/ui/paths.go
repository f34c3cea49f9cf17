package ui

import "path"

// consolePath joins route segments under the console base path.
func consolePath(base string, segments ...string) string {
	if base == "" {
		base = "/admin"
	}
	return path.Join(append([]string{"/", base}, segments...)...)
}
