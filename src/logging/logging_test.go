package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	color "github.com/cdil-bc/canvas-discussions/src/ansicolor"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.Disable()
}

func TestExtractLogger(t *testing.T) {
	t.Run("falls back to global", func(t *testing.T) {
		assert.Same(t, GlobalLogger(), ExtractLogger(context.Background()))
	})
	t.Run("attached", func(t *testing.T) {
		logger := zerolog.Nop()
		ctx := AttachLoggerToContext(&logger, context.Background())
		assert.Same(t, &logger, ExtractLogger(ctx))
	})
}

func TestPrettyWriter(t *testing.T) {
	var out bytes.Buffer
	w := NewPrettyZerologWriter()
	w.Out = &out

	logger := zerolog.New(w)
	logger.Info().Str("course", "42").Err(oops.New(errors.New("boom"), "failed to fetch")).Msg("fetch failed")

	s := out.String()
	assert.Contains(t, s, "INFO: fetch failed")
	assert.Contains(t, s, "ERROR: failed to fetch: boom")
	assert.Contains(t, s, `course: "42"`)
}

func TestPrettyWriterPassesThroughNonJSON(t *testing.T) {
	var out bytes.Buffer
	w := NewPrettyZerologWriter()
	w.Out = &out

	n, err := w.Write([]byte("not json\n"))
	assert.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "not json\n", out.String())
}
