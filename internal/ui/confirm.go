package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Prompter asks line-based questions. It serializes prompts so concurrent
// wallet requests do not interleave.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

var stdPrompter = NewPrompter(os.Stdin, os.Stderr)

// Confirm prompts the user with a yes/no question on the terminal.
func Confirm(prompt string) bool { return stdPrompter.Confirm(prompt) }

// ConfirmDanger is like Confirm but styled with the error color (for destructive actions).
func ConfirmDanger(prompt string) bool { return stdPrompter.ConfirmDanger(prompt) }

// Confirm returns true for yes.
func (p *Prompter) Confirm(prompt string) bool {
	return p.yesNo(StyleWarning.Render(prompt))
}

// ConfirmDanger is Confirm styled for destructive actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	return p.yesNo(StyleError.Render("⚠ " + prompt))
}

// Print writes s followed by a newline.
func (p *Prompter) Print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *Prompter) yesNo(styled string) bool {
	line, _ := p.ask(styled + " [y/N]: ")
	line = strings.ToLower(line)
	return line == "y" || line == "yes"
}

// Choose asks for a comma separated list of 1-based indexes out of n.
// An empty answer picks def; "n" or "none" picks nothing.
func (p *Prompter) Choose(prompt string, n int, def []int) ([]int, error) {
	for {
		line, err := p.ask(StyleWarning.Render(prompt) + " ")
		if err != nil && line == "" {
			return nil, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "n", "no", "none":
			return nil, nil
		}
		picked, perr := parseChoices(line, n)
		if perr == nil {
			return picked, nil
		}
		p.Print(Err(perr.Error()))
		if err != nil {
			return nil, err
		}
	}
}

func (p *Prompter) ask(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	return strings.TrimSpace(line), err
}

func parseChoices(line string, n int) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(line, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || i < 1 || i > n {
			return nil, fmt.Errorf("pick numbers between 1 and %d", n)
		}
		if !seen[i-1] {
			seen[i-1] = true
			out = append(out, i-1)
		}
	}
	return out, nil
}
