// # internal/checker/fileinfo.go
package checker

import (
	"gradual/internal/diagnostics"
	"gradual/internal/types"
)

// FileInfo is the per-module context injected into the walker/evaluator pair.
// No global mutable state: settings, sink, and import lookup all arrive here.
type FileInfo struct {
	FilePath     string
	IsStubFile   bool
	Settings     diagnostics.Settings
	Sink         diagnostics.Sink
	ImportLookup types.ImportLookup
}
