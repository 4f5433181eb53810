package koine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHighlightPEGWritesOutputForRenderedGrammar(t *testing.T) {
	p, err := New(mulOpGrammar())
	require.NoError(t, err)

	src, err := p.PEG()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HighlightPEG(&buf, src))
	require.NotEmpty(t, buf.String())
}

func TestHighlightPEGHandlesEmptySource(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HighlightPEG(&buf, ""))
}
