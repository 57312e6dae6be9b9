package feedback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Prompter is where the loop waits for a human.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// TerminalPrompter reads replies from In on a dedicated goroutine so a blocked read
// never holds up cancellation.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
}

// NewTerminalPrompter creates a prompter over in/out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{In: in, Out: out}
}

func (p *TerminalPrompter) start() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(p.In)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
	}()
}

// Prompt writes question and returns the first line typed. It returns io.EOF when input
// is closed and ctx.Err() when ctx is cancelled first.
func (p *TerminalPrompter) Prompt(ctx context.Context, question string) (string, error) {
	p.once.Do(p.start)
	if p.Out != nil {
		fmt.Fprint(p.Out, question)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// ScriptedPrompter replays fixed replies, then reports io.EOF.
type ScriptedPrompter struct {
	Responses []string

	mu    sync.Mutex
	next  int
	Asked []string
}

// Prompt returns the next scripted reply.
func (p *ScriptedPrompter) Prompt(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Asked = append(p.Asked, question)
	if p.next >= len(p.Responses) {
		return "", io.EOF
	}
	r := p.Responses[p.next]
	p.next++
	return r, nil
}
