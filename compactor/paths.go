package compactor

import (
	"fmt"
	"path"
	"strings"
)

// SeedPath is the file the working table is created from: <root><repo>/<object>.
func SeedPath(root, repo, object string) string {
	return join(root, repo, object)
}

// IngestPath is the file appended during a batch: <root><repo>/<branch>/<object>.
func IngestPath(root, repo, branch, object string) string {
	return join(root, repo, branch, object)
}

// OutputName names the compacted file after the progress counter.
func OutputName(progress uint64) string {
	return fmt.Sprintf("file_%d", progress)
}

// ExportPath is where a flushed batch is written. An empty root means the
// working directory of the engine.
func ExportPath(root, name string) string {
	return join(root, name+".parquet")
}

func join(root string, elems ...string) string {
	p := path.Join(elems...)
	switch {
	case root == "":
		return p
	case strings.HasSuffix(root, "/"):
		return root + p
	}
	return root + "/" + p
}
