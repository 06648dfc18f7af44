package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// LineInput reads one line of user input per call.
type LineInput interface {
	ReadLine(prompt string) (string, error)
	// ReadPassword reads without echo where the terminal allows it.
	ReadPassword(prompt string) (string, error)
	Close() error
}

type basicLineInput struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewBasicInput reads lines from in, echoing prompts to out.
func NewBasicInput(in io.Reader, out io.Writer) LineInput {
	return &basicLineInput{reader: bufio.NewReader(in), out: out}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) ReadPassword(prompt string) (string, error) {
	return b.ReadLine(prompt)
}

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyPath,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(p string) (string, error) {
	r.instance.SetPrompt(p)
	return r.instance.Readline()
}

func (r *readlineInput) ReadPassword(p string) (string, error) {
	b, err := r.instance.ReadPassword(p)
	return string(b), err
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// NewLineInput prefers readline with history and falls back to plain
// stdin when the terminal cannot be set up.
func NewLineInput(historyPath string) (LineInput, error) {
	rl, err := newReadlineInput(historyPath)
	if err == nil {
		return rl, nil
	}
	return NewBasicInput(os.Stdin, os.Stdout), err
}
