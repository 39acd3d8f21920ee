package controller

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/ca-srg/relaunch/domain/entity"
)

// syncBuffer is a bytes.Buffer safe for the reader goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testRequest(t *testing.T) entity.RestartRequest {
	t.Helper()
	request, err := entity.NewRestartRequest("2.0.0", 5*time.Minute, true)
	require.NoError(t, err)
	return request
}

func waitForOutcome(t *testing.T, outcomes <-chan entity.DialogOutcome) entity.DialogOutcome {
	t.Helper()
	select {
	case o := <-outcomes:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("prompt was not answered")
		return entity.DialogOutcomeNone
	}
}

func TestTerminalPromptPresenter_LineAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  entity.DialogOutcome
	}{
		{"y\n", entity.DialogOutcomeAccept},
		{"\n", entity.DialogOutcomeAccept},
		{"YES\n", entity.DialogOutcomeAccept},
		{"n\n", entity.DialogOutcomeCancel},
		{"later\n", entity.DialogOutcomeCancel},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			out := &syncBuffer{}
			p := newTerminalPromptPresenter(strings.NewReader(tt.input), out, -1)
			p.isTerminal = func(int) bool { return false }

			outcomes := make(chan entity.DialogOutcome, 1)
			dismiss, err := p.ShowRestartPrompt(testRequest(t), func(o entity.DialogOutcome) { outcomes <- o })
			require.NoError(t, err)
			defer dismiss()

			assert.Equal(t, tt.want, waitForOutcome(t, outcomes))
			assert.Contains(t, out.String(), "Version 2.0.0 is available.")
			assert.Contains(t, out.String(), "restarting automatically in 5m0s")
		})
	}
}

func TestTerminalPromptPresenter_RawMode(t *testing.T) {
	out := &syncBuffer{}
	p := newTerminalPromptPresenter(strings.NewReader("xqN"), out, 7)

	var restored []int
	p.isTerminal = func(int) bool { return true }
	p.makeRaw = func(fd int) (*term.State, error) { return &term.State{}, nil }
	p.restore = func(fd int, _ *term.State) error {
		restored = append(restored, fd)
		return nil
	}

	outcomes := make(chan entity.DialogOutcome, 1)
	dismiss, err := p.ShowRestartPrompt(testRequest(t), func(o entity.DialogOutcome) { outcomes <- o })
	require.NoError(t, err)

	// 関係ないキーは読み飛ばす
	assert.Equal(t, entity.DialogOutcomeCancel, waitForOutcome(t, outcomes))
	assert.Contains(t, out.String(), "\r\n")

	dismiss()
	dismiss()
	assert.Equal(t, []int{7}, restored)
}

func TestTerminalPromptPresenter_AnswerAfterDismissIsIgnored(t *testing.T) {
	reader, writer := io.Pipe()
	p := newTerminalPromptPresenter(reader, &syncBuffer{}, -1)
	p.isTerminal = func(int) bool { return false }

	outcomes := make(chan entity.DialogOutcome, 1)
	dismiss, err := p.ShowRestartPrompt(testRequest(t), func(o entity.DialogOutcome) { outcomes <- o })
	require.NoError(t, err)

	dismiss()
	_, _ = writer.Write([]byte("y\n"))
	_ = writer.Close()

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected outcome after dismiss: %v", o)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTerminalPromptPresenter_Notify(t *testing.T) {
	out := &syncBuffer{}
	p := newTerminalPromptPresenter(strings.NewReader(""), out, -1)

	require.NoError(t, p.Notify("Restart deferred", "Restart deferred because Download in progress."))
	assert.Equal(t, "[Restart deferred] Restart deferred because Download in progress.\n", out.String())
}
