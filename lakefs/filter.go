package lakefs

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/status"
)

// Filter is a compiled boolean expression over model.ObjectItem fields,
// e.g. `Path endsWith ".parquet" && SizeBytes > 0`.
type Filter struct {
	src  string
	prog *vm.Program
}

// CompileFilter returns nil for an empty expression; a nil Filter matches everything.
func CompileFilter(src string) (*Filter, error) {
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.Env(model.ObjectItem{}), expr.AsBool())
	if err != nil {
		return nil, status.Validation(fmt.Sprintf("invalid filter %q: %v", src, err))
	}
	return &Filter{src: src, prog: prog}, nil
}

func (f *Filter) Match(item model.ObjectItem) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.prog, item)
	if err != nil {
		return false, status.Validation(fmt.Sprintf("filter %q on %s: %v", f.src, item.Path, err))
	}
	return out.(bool), nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}
