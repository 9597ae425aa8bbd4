package domain

import (
	"path"
	"strings"
)

// outputPrefix marks a path that is already relative to the output root.
const outputPrefix = "./"

// RewriteOutputPath rebases a project relative path onto the output root by
// stripping sourceBase. The result always starts with "./" and is returned
// unchanged by further calls, so applying it twice is the same as once.
// Paths outside sourceBase keep their full relative path.
func RewriteOutputPath(p, sourceBase string) string {
	if strings.HasPrefix(p, outputPrefix) {
		return p
	}
	p = path.Clean(p)
	base := path.Clean(sourceBase)

	switch {
	case base == "." || base == "":
		return outputPrefix + p
	case p == base:
		return outputPrefix
	case strings.HasPrefix(p, base+"/"):
		return outputPrefix + strings.TrimPrefix(p, base+"/")
	default:
		return outputPrefix + p
	}
}

// OutputPath joins dest and a rewritten path into the path written to disk.
func OutputPath(dest, rewritten string) string {
	return path.Join(dest, strings.TrimPrefix(rewritten, outputPrefix))
}
