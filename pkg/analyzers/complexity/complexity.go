// Package complexity computes cyclomatic complexity per function and method
// block: one plus the branch points attributed to the block.
package complexity

import (
	"errors"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

// ErrNilUnit is returned when no unit is given.
var ErrNilUnit = errors.New("complexity: unit is nil")

// Rank is the letter grade of a complexity value.
type Rank string

// Ranks from simplest to most complex.
const (
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
	RankD Rank = "D"
	RankE Rank = "E"
	RankF Rank = "F"
)

// Upper bounds (inclusive) of each rank below F.
const (
	rankALimit = 5
	rankBLimit = 10
	rankCLimit = 20
	rankDLimit = 30
	rankELimit = 40
)

// Ranks lists every rank in order.
func Ranks() []Rank {
	return []Rank{RankA, RankB, RankC, RankD, RankE, RankF}
}

// RankOf maps a complexity value to its rank. Values below 1 rank A.
func RankOf(complexity int) Rank {
	switch {
	case complexity <= rankALimit:
		return RankA
	case complexity <= rankBLimit:
		return RankB
	case complexity <= rankCLimit:
		return RankC
	case complexity <= rankDLimit:
		return RankD
	case complexity <= rankELimit:
		return RankE
	default:
		return RankF
	}
}

// Record is the complexity of one function or method block.
type Record struct {
	Name       string      `json:"name"       yaml:"name"`
	Kind       source.Kind `json:"kind"       yaml:"kind"`
	StartLine  int         `json:"start_line" yaml:"start_line"`
	EndLine    int         `json:"end_line"   yaml:"end_line"`
	Complexity int         `json:"complexity" yaml:"complexity"`
	Rank       Rank        `json:"rank"       yaml:"rank"`
}

// Summary holds the records of a unit and their aggregates.
type Summary struct {
	Records      []Record     `json:"records"      yaml:"records"`
	Total        int          `json:"total"        yaml:"total"`
	Max          int          `json:"max"          yaml:"max"`
	Average      float64      `json:"average"      yaml:"average"`
	Distribution map[Rank]int `json:"distribution" yaml:"distribution"`
}

// Of computes the complexity of a single block.
func Of(b *source.Block) int {
	return len(b.Branches) + 1
}

// Analyze returns one record per function or method block in source order.
func Analyze(unit *source.Unit) (*Summary, error) {
	if unit == nil || unit.Root == nil {
		return nil, ErrNilUnit
	}

	summary := &Summary{
		Records:      []Record{},
		Distribution: make(map[Rank]int, len(Ranks())),
	}

	for _, r := range Ranks() {
		summary.Distribution[r] = 0
	}

	for _, b := range unit.Blocks() {
		if !b.Kind.IsCallable() {
			continue
		}

		c := Of(b)
		rec := Record{
			Name:       b.Name,
			Kind:       b.Kind,
			StartLine:  b.StartLine,
			EndLine:    b.EndLine,
			Complexity: c,
			Rank:       RankOf(c),
		}

		summary.Records = append(summary.Records, rec)
		summary.Total += c
		summary.Max = max(summary.Max, c)
		summary.Distribution[rec.Rank]++
	}

	if n := len(summary.Records); n > 0 {
		summary.Average = float64(summary.Total) / float64(n)
	}

	return summary, nil
}
