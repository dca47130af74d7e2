// Package ui renders the interactive surface and reads operator input.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrInputClosed is returned once the operator's input stream has ended.
var ErrInputClosed = errors.New("input closed")

// Console prints styled messages and reads answers. It works on any reader,
// so flows can be driven by a script in tests.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal file descriptor used for masked input, or -1.
	fd int
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
	}
	return c
}

// Stdio returns a Console on the process's stdin and stdout.
func Stdio() *Console {
	return NewConsole(os.Stdin, os.Stdout)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) Blank() {
	fmt.Fprintln(c.out)
}

func (c *Console) Title(text string) {
	c.Blank()
	c.println(TitleStyle.Render(text))
	c.Blank()
}

func (c *Console) Success(icon, message string) {
	c.println(SuccessStyle.Render(fmt.Sprintf("%s %s", icon, message)))
}

func (c *Console) Error(icon, message string) {
	c.println(ErrorStyle.Render(fmt.Sprintf("%s %s", icon, message)))
}

func (c *Console) Warning(icon, message string) {
	c.println(WarningStyle.Render(fmt.Sprintf("%s %s", icon, message)))
}

func (c *Console) Info(icon, message string) {
	c.println(HighlightStyle.Render(fmt.Sprintf("%s %s", icon, message)))
}

func (c *Console) Muted(message string) {
	c.println(MutedStyle.Render(message))
}

func (c *Console) Tip(message string) {
	c.println(TipStyle.Render(message))
}

func (c *Console) ListItem(icon, name string) {
	c.println(ListItemStyle.Render(fmt.Sprintf("%s %s", icon, name)))
}

func (c *Console) Divider() {
	c.println(divider(41))
}

func (c *Console) Table(headers []string, rows [][]string) {
	c.println(Table(headers, rows))
}

// Secret prints a revealed value. The string conversion is unavoidable for
// rendering; callers still wipe their own copy.
func (c *Console) Secret(value []byte) {
	c.Warning("!", "values printed to the terminal may be kept in scrollback")
	c.println(SecretStyle.Render(strings.TrimRight(string(value), "\r\n")))
}

// Ask prints prompt and returns the trimmed answer line.
func (c *Console) Ask(prompt string) (string, error) {
	fmt.Fprint(c.out, PromptStyle.Render(prompt))
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			c.Blank()
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// AskDefault is Ask with a value used when the answer is empty.
func (c *Console) AskDefault(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s[%s] ", prompt, def)
	}
	answer, err := c.Ask(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (c *Console) Confirm(prompt string) (bool, error) {
	answer, err := c.Ask(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// AskSecret reads a value without echo when attached to a terminal. The
// returned slice belongs to the caller, who must wipe it.
func (c *Console) AskSecret(prompt string) ([]byte, error) {
	fmt.Fprint(c.out, PromptStyle.Render(prompt))
	if c.fd >= 0 {
		b, err := term.ReadPassword(c.fd)
		c.Blank()
		if err != nil {
			return nil, fmt.Errorf("failed to read secret: %w", err)
		}
		return b, nil
	}
	line, err := c.in.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		if errors.Is(err, io.EOF) {
			return nil, ErrInputClosed
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n], nil
}
