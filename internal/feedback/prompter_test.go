package feedback

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPrompter_ReadsLines(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPrompter(strings.NewReader("refine: shorter\napprove\n"), &out)

	first, err := p.Prompt(context.Background(), "? ")
	require.NoError(t, err)
	assert.Equal(t, "refine: shorter", first)

	second, err := p.Prompt(context.Background(), "? ")
	require.NoError(t, err)
	assert.Equal(t, "approve", second)

	_, err = p.Prompt(context.Background(), "? ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "? ? ? ", out.String())
}

func TestTerminalPrompter_Cancellation(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := NewTerminalPrompter(r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Prompt(ctx, "? ")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestScriptedPrompter(t *testing.T) {
	p := &ScriptedPrompter{Responses: []string{"approve"}}
	got, err := p.Prompt(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "approve", got)

	_, err = p.Prompt(context.Background(), "q2")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"q1", "q2"}, p.Asked)
}
