package verilog

import (
	"fmt"
	"sort"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

// DataFileWriter collects auxiliary files produced while emitting specials.
type DataFileWriter interface {
	// Add stores content under <module>_<name>, adding a _1, _2, ...
	// suffix before the extension if that name is taken, and returns the
	// final file name.
	Add(name string, content []byte) string
}

// DataFile is an auxiliary output referenced by the main source.
type DataFile struct {
	Name    string
	Content []byte
}

type dataFiles struct {
	module string
	files  []DataFile
	used   map[string]bool
}

func newDataFiles(module string) *dataFiles {
	return &dataFiles{module: module, used: make(map[string]bool)}
}

func (d *dataFiles) Add(name string, content []byte) string {
	base, ext := splitExt(d.module + "_" + name)
	final := base + ext
	for i := 1; d.used[final]; i++ {
		final = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	d.used[final] = true
	d.files = append(d.files, DataFile{Name: final, Content: append([]byte(nil), content...)})
	return final
}

func splitExt(name string) (string, string) {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i:]
		}
	}
	return name, ""
}

// EmitFunc renders a special. handled is false when the handler declines.
type EmitFunc func(sp ir.Special, ns *namer.Namespace, files DataFileWriter) (text string, handled bool, err error)

// LowerFunc replaces a special by ordinary logic. handled is false when the
// special is to be emitted directly.
type LowerFunc func(sp ir.Special, alloc *ir.Allocator) (f *ir.Fragment, handled bool, err error)

// Handler is the registry entry for one special kind. Either field may be
// nil.
type Handler struct {
	Emit  EmitFunc
	Lower LowerFunc
}

// Registry maps special kinds to handlers. Register every handler before
// the first compilation; lookups are read-only afterwards and safe for
// concurrent use.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry returns a registry with the built-in memory, instance,
// tristate and multireg handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("memory", Handler{Emit: emitMemory})
	r.Register("instance", Handler{Emit: emitInstance})
	r.Register("tristate", Handler{Emit: emitTristate})
	r.Register("multireg", Handler{Lower: lowerMultiReg})
	return r
}

// Register installs h for kind, replacing any previous handler.
func (r *Registry) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// LowerSpecial offers sp to the lowering handler of its kind.
func (r *Registry) LowerSpecial(sp ir.Special, alloc *ir.Allocator) (*ir.Fragment, bool, error) {
	h, ok := r.handlers[sp.Kind()]
	if !ok || h.Lower == nil {
		return nil, false, nil
	}
	return h.Lower(sp, alloc)
}

// Emit renders sp with the handler of its kind. A special nobody renders
// is an error.
func (r *Registry) Emit(sp ir.Special, ns *namer.Namespace, files DataFileWriter) (string, error) {
	h, ok := r.handlers[sp.Kind()]
	if ok && h.Emit != nil {
		text, handled, err := h.Emit(sp, ns, files)
		if err != nil {
			return "", err
		}
		if handled {
			return text, nil
		}
	}
	return "", &ir.UnhandledSpecialError{Kind: sp.Kind(), Special: sp}
}
