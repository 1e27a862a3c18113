package perf

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Timings for one run of a command (a fetch, an export), split into named
// blocks. All methods are safe on a nil *RunPerf, so code can time itself
// whether or not anyone is collecting.
type RunPerf struct {
	Name   string
	Start  time.Time
	End    time.Time
	Blocks []PerfBlock
}

func NewRunPerf(name string) *RunPerf {
	return &RunPerf{
		Name:  name,
		Start: time.Now(),
	}
}

// Ends any open blocks and the run itself.
func (rp *RunPerf) Finish() {
	if rp == nil {
		return
	}
	for rp.EndBlock() {
	}
	rp.End = time.Now()
}

func (rp *RunPerf) StartBlock(category, description string) {
	if rp == nil {
		return
	}
	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
}

// Ends the most recently started block that is still open. Returns false if
// there was none.
func (rp *RunPerf) EndBlock() bool {
	if rp == nil {
		return false
	}
	for i := len(rp.Blocks) - 1; i >= 0; i -= 1 {
		if rp.Blocks[i].End.IsZero() {
			rp.Blocks[i].End = time.Now()
			return true
		}
	}
	return false
}

func (rp *RunPerf) Duration() time.Duration {
	if rp == nil || rp.End.IsZero() {
		return 0
	}
	return rp.End.Sub(rp.Start)
}

// Logs the run's total time and each block's, at debug level.
func (rp *RunPerf) Log(logger *zerolog.Logger) {
	if rp == nil {
		return
	}
	blocks := zerolog.Arr()
	for _, block := range rp.Blocks {
		blocks.Dict(zerolog.Dict().
			Str("category", block.Category).
			Str("description", block.Description).
			Float64("ms", block.DurationMs()))
	}
	logger.Debug().
		Str("run", rp.Name).
		Dur("total", rp.Duration()).
		Array("blocks", blocks).
		Msg("Run timings")
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}

type perfContextKey struct{}

func AttachToContext(rp *RunPerf, ctx context.Context) context.Context {
	return context.WithValue(ctx, perfContextKey{}, rp)
}

// Returns the run being timed, or nil if there isn't one.
func ExtractFromContext(ctx context.Context) *RunPerf {
	rp, _ := ctx.Value(perfContextKey{}).(*RunPerf)
	return rp
}
