package controller

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// Key bytes understood by the raw-mode prompt
const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// TerminalPromptPresenter asks for restart consent on the controlling terminal
type TerminalPromptPresenter struct {
	in  io.Reader
	out io.Writer
	fd  int

	isTerminal func(fd int) bool
	makeRaw    func(fd int) (*term.State, error)
	restore    func(fd int, state *term.State) error

	mu sync.Mutex
}

var (
	_ usecase.PromptPresenter = (*TerminalPromptPresenter)(nil)
	_ usecase.Notifier        = (*TerminalPromptPresenter)(nil)
)

// NewTerminalPromptPresenter creates a presenter on stdin and stdout
func NewTerminalPromptPresenter() *TerminalPromptPresenter {
	return newTerminalPromptPresenter(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
}

func newTerminalPromptPresenter(in io.Reader, out io.Writer, fd int) *TerminalPromptPresenter {
	return &TerminalPromptPresenter{
		in:         in,
		out:        out,
		fd:         fd,
		isTerminal: term.IsTerminal,
		makeRaw:    term.MakeRaw,
		restore:    term.Restore,
	}
}

// Interactive reports whether stdin is a terminal someone can answer on
func (p *TerminalPromptPresenter) Interactive() bool {
	return p.isTerminal(p.fd)
}

// ShowRestartPrompt prints the question and reads the answer in the background.
// y, Y or Enter accept; n, N, Esc or Ctrl-C decline.
func (p *TerminalPromptPresenter) ShowRestartPrompt(request entity.RestartRequest, respond func(entity.DialogOutcome)) (func(), error) {
	raw := p.Interactive()
	var state *term.State
	if raw {
		s, err := p.makeRaw(p.fd)
		if err != nil {
			return nil, fmt.Errorf("failed to put terminal into raw mode: %w", err)
		}
		state = s
	}

	nl := "\n"
	if raw {
		nl = "\r\n"
	}
	p.print(nl + request.Describe() + nl)
	p.print(fmt.Sprintf("Restart now? [Y/n] (restarting automatically in %s) ", request.WaitInterval()))

	var (
		dismissOnce sync.Once
		mu          sync.Mutex
		dismissed   bool
	)
	isDismissed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dismissed
	}

	answer := func(outcome entity.DialogOutcome) {
		if isDismissed() {
			return
		}
		respond(outcome)
	}

	if raw {
		go p.readKeys(answer, isDismissed)
	} else {
		go p.readLine(answer)
	}

	dismiss := func() {
		dismissOnce.Do(func() {
			mu.Lock()
			dismissed = true
			mu.Unlock()
			if state != nil {
				_ = p.restore(p.fd, state)
			}
			p.print("\n")
		})
	}
	return dismiss, nil
}

// readKeys consumes single key presses until one of them answers the prompt
func (p *TerminalPromptPresenter) readKeys(answer func(entity.DialogOutcome), dismissed func() bool) {
	buf := make([]byte, 1)
	for !dismissed() {
		n, err := p.in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'y', 'Y', '\r', '\n':
			answer(entity.DialogOutcomeAccept)
			return
		case 'n', 'N', keyEscape, keyCtrlC:
			answer(entity.DialogOutcomeCancel)
			return
		}
	}
}

// readLine handles a non-terminal stdin, one answer per line
func (p *TerminalPromptPresenter) readLine(answer func(entity.DialogOutcome)) {
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		answer(entity.DialogOutcomeAccept)
	default:
		answer(entity.DialogOutcomeCancel)
	}
}

// Notify prints a one-line notice
func (p *TerminalPromptPresenter) Notify(title, message string) error {
	p.print(fmt.Sprintf("[%s] %s\n", title, message))
	return nil
}

func (p *TerminalPromptPresenter) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, s)
}
