// Package prompt reads task and credential input for the interactive shell.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/GophTodo/internal/models"
)

// Prompter reads answers line by line. It owns the scanner so the shell
// loop and the prompts never compete for buffered input.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New returns a Prompter reading from in and printing labels to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the next trimmed line. ok is false on EOF.
func (p *Prompter) Line(label string) (string, bool) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Task asks for a new task's title and description.
func (p *Prompter) Task() (title, description string) {
	title, _ = p.Line("Title: ")
	description = p.description("Description (optional, @file to load): ")
	return title, description
}

// EditTask asks for replacement fields. Empty answers keep the current
// value; "-" clears the description.
func (p *Prompter) EditTask() models.TaskUpdate {
	var upd models.TaskUpdate

	if title, _ := p.Line("New title (leave empty to keep): "); title != "" {
		upd.Title = models.StringPtr(title)
	}

	switch desc := p.description("New description (leave empty to keep, - to clear, @file to load): "); desc {
	case "":
	case "-":
		upd.Description = models.StringPtr("")
	default:
		upd.Description = models.StringPtr(desc)
	}
	return upd
}

// Login asks for email and password.
func (p *Prompter) Login() models.LoginRequest {
	email, _ := p.Line("Email: ")
	password, _ := p.Line("Password: ")
	return models.LoginRequest{Email: email, Password: password}
}

// Register asks for name, email and password.
func (p *Prompter) Register() models.RegisterRequest {
	name, _ := p.Line("Name: ")
	email, _ := p.Line("Email: ")
	password, _ := p.Line("Password (min 8 characters): ")
	return models.RegisterRequest{Name: name, Email: email, Password: password}
}

// description reads a line; "@path" loads the file contents instead.
func (p *Prompter) description(label string) string {
	line, _ := p.Line(label)
	path, ok := strings.CutPrefix(line, "@")
	if !ok {
		return line
	}

	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		fmt.Fprintf(p.out, "Failed to read file %q: %v\n", path, err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
