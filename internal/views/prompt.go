package views

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ideaboard/internal/models"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
)

// EndOfText ends a multi-line answer
const EndOfText = "."

// Prompter reads answers line by line from one input
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter. Share one per input so buffered lines are not lost.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question; only y or yes (any case) confirms
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	return NewPrompter(in, out).Confirm(prompt)
}

// Confirm asks a yes/no question on the prompter's input
func (p *Prompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.readLine()
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	}
	return false
}

// Ask writes prompt and returns the trimmed answer
func (p *Prompter) Ask(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", prompt)
	line, err := p.readLine()
	if err != nil && line == "" {
		return "", contextutils.WrapError(err, "input ended")
	}
	return line, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimSpace(line), err
}

// Fill walks the rendered form, asking for each visible field once. The form is rendered
// again after every answer, so a field revealed by a dependency is asked in its place and a
// field hidden by one is dropped from the result. A blank answer keeps the current value.
func (p *Prompter) Fill(renderer *services.FormRenderer, initial models.FormValues) (models.FormValues, error) {
	values := initial.Clone()
	asked := make(map[string]bool)
	for {
		widget, ok := nextWidget(renderer.Render(values), asked)
		if !ok {
			break
		}
		asked[widget.Field.Name] = true
		value, err := p.askWidget(widget)
		if err != nil {
			return nil, err
		}
		if value != nil {
			values[widget.Field.Name] = value
		}
	}

	visible := make(map[string]bool)
	for _, f := range renderer.Visible(values) {
		visible[f.Name] = true
	}
	for name := range values {
		if _, configured := models.FindField(renderer.Fields(), name); configured && !visible[name] {
			delete(values, name)
		}
	}
	return values, nil
}

func nextWidget(widgets []services.Widget, asked map[string]bool) (services.Widget, bool) {
	for _, w := range widgets {
		if !asked[w.Field.Name] {
			return w, true
		}
	}
	return services.Widget{}, false
}

// askWidget returns nil when the answer keeps the current value
func (p *Prompter) askWidget(w services.Widget) (interface{}, error) {
	label := Sanitize(w.Field.Label)
	if label == "" {
		label = w.Field.Name
	}
	if w.Field.Required {
		label += " *"
	}
	if current := currentText(w.Value); current != "" {
		label = fmt.Sprintf("%s [%s]", label, current)
	}

	switch w.Kind {
	case services.WidgetMultiline:
		return p.askMultiline(label, w.Field.Placeholder)
	case services.WidgetSelect, services.WidgetRadio:
		return p.askChoice(label, w)
	case services.WidgetMultiselect:
		return p.askMulti(label, w)
	default:
		if w.Field.Placeholder != "" {
			label = fmt.Sprintf("%s (%s)", label, w.Field.Placeholder)
		}
		answer, err := p.Ask(label)
		if err != nil || answer == "" {
			return nil, err
		}
		return answer, nil
	}
}

func currentText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func (p *Prompter) askMultiline(label, placeholder string) (interface{}, error) {
	fmt.Fprintf(p.out, "%s (end with a line containing only %q)\n", label, EndOfText)
	if placeholder != "" {
		fmt.Fprintf(p.out, "  %s\n", placeholder)
	}
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		text := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(text) == EndOfText {
			break
		}
		if text != "" || len(lines) > 0 {
			lines = append(lines, text)
		}
		if err != nil {
			if len(lines) == 0 {
				return nil, contextutils.WrapError(err, "input ended")
			}
			break
		}
	}
	joined := strings.TrimSpace(strings.Join(lines, "\n"))
	if joined == "" {
		return nil, nil
	}
	return joined, nil
}

// options drops the blank placeholder a single select starts with
func options(choices []string) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (p *Prompter) listChoices(choices []string) {
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, Sanitize(c))
	}
}

// matchChoice accepts a 1-based index or a case-insensitive option name
func matchChoice(answer string, choices []string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return "", false
	}
	for _, c := range choices {
		if strings.EqualFold(c, answer) {
			return c, true
		}
	}
	return "", false
}

func (p *Prompter) askChoice(label string, w services.Widget) (interface{}, error) {
	choices := options(w.Choices)
	for {
		fmt.Fprintln(p.out, label)
		p.listChoices(choices)
		answer, err := p.Ask("Choice")
		if err != nil || answer == "" {
			return nil, err
		}
		if choice, ok := matchChoice(answer, choices); ok {
			return choice, nil
		}
		fmt.Fprintf(p.out, "%q is not one of the choices\n", answer)
	}
}

func (p *Prompter) askMulti(label string, w services.Widget) (interface{}, error) {
	choices := options(w.Choices)
	for {
		fmt.Fprintln(p.out, label)
		p.listChoices(choices)
		answer, err := p.Ask("Choices (comma separated)")
		if err != nil || answer == "" {
			return nil, err
		}
		selected := make([]string, 0)
		seen := make(map[string]bool)
		valid := true
		for _, part := range strings.Split(answer, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			choice, ok := matchChoice(part, choices)
			if !ok {
				fmt.Fprintf(p.out, "%q is not one of the choices\n", part)
				valid = false
				break
			}
			if !seen[choice] {
				seen[choice] = true
				selected = append(selected, choice)
			}
		}
		if valid {
			return selected, nil
		}
	}
}
