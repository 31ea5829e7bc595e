// Package structure counts class and function blocks of a unit.
package structure

import (
	"errors"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

// ErrNilUnit is returned when no unit is given.
var ErrNilUnit = errors.New("structure: unit is nil")

// Count holds the structural totals of a unit. Nested blocks are included;
// methods count as functions.
type Count struct {
	Classes   int `json:"class_count"    yaml:"class_count"`
	Functions int `json:"function_count" yaml:"function_count"`
	Methods   int `json:"method_count"   yaml:"method_count"`
	MaxDepth  int `json:"max_depth"      yaml:"max_depth"`
}

// Analyze visits every block once.
func Analyze(unit *source.Unit) (Count, error) {
	if unit == nil || unit.Root == nil {
		return Count{}, ErrNilUnit
	}

	var c Count

	for _, b := range unit.Blocks() {
		switch b.Kind {
		case source.KindClass:
			c.Classes++
		case source.KindMethod:
			c.Methods++
			c.Functions++
		case source.KindFunction:
			c.Functions++
		case source.KindModule:
		}

		c.MaxDepth = max(c.MaxDepth, b.Depth)
	}

	return c, nil
}
