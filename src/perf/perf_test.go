package perf

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPerf(t *testing.T) {
	rp := NewRunPerf("export")
	rp.StartBlock("fetch", "discussions")
	rp.StartBlock("fetch", "nested")
	assert.True(t, rp.EndBlock())
	assert.False(t, rp.Blocks[1].End.IsZero())
	assert.True(t, rp.Blocks[0].End.IsZero())

	rp.Finish()
	assert.False(t, rp.Blocks[0].End.IsZero())
	assert.False(t, rp.EndBlock())
	assert.GreaterOrEqual(t, rp.Duration(), rp.Blocks[0].Duration())

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	rp.Log(&logger)
	assert.Contains(t, buf.String(), `"run":"export"`)
	assert.Contains(t, buf.String(), `"description":"nested"`)
}

func TestNilRunPerf(t *testing.T) {
	var rp *RunPerf
	rp.StartBlock("a", "b")
	assert.False(t, rp.EndBlock())
	rp.Finish()
	assert.Zero(t, rp.Duration())
	logger := zerolog.Nop()
	rp.Log(&logger)
}

func TestContext(t *testing.T) {
	assert.Nil(t, ExtractFromContext(context.Background()))

	rp := NewRunPerf("x")
	ctx := AttachToContext(rp, context.Background())
	require.NotNil(t, ExtractFromContext(ctx))
	assert.Same(t, rp, ExtractFromContext(ctx))
}
