package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gubarz/shortlinks/internal/editor"
	"github.com/gubarz/shortlinks/internal/errors"
	"github.com/gubarz/shortlinks/internal/registry"
)

const (
	fieldLink = iota
	fieldURL
)

// formState holds the create-link form
type formState struct {
	link       textinput.Model
	url        textinput.Model
	focus      int
	linkErr    string
	urlErr     string
	submitErr  string
	submitting bool
}

// newFormState prefills the link with a random path and focuses the URL,
// the field the user almost always types first.
func newFormState() *formState {
	link := textinput.New()
	link.Prompt = ""
	link.CharLimit = 128
	link.Width = 40
	link.SetValue(registry.RandomLink())

	url := textinput.New()
	url.Prompt = ""
	url.Placeholder = "https://"
	url.CharLimit = 2048
	url.Width = 60
	url.Focus()

	return &formState{link: link, url: url, focus: fieldURL}
}

// value returns the trimmed field contents as a NewLink
func (f *formState) value() editor.NewLink {
	return editor.NewLink{
		Path: strings.TrimSpace(f.link.Value()),
		URL:  strings.TrimSpace(f.url.Value()),
	}
}

// setFocus moves keyboard focus to field
func (f *formState) setFocus(field int) tea.Cmd {
	f.focus = field
	if field == fieldLink {
		f.url.Blur()
		return f.link.Focus()
	}
	f.link.Blur()
	return f.url.Focus()
}

// validate sets the inline errors and reports whether both fields pass
func (f *formState) validate() bool {
	v := f.value()
	f.linkErr, f.urlErr = "", ""
	if !registry.IsValidLink(v.Path) {
		f.linkErr = "Use /path segments of letters, digits, - and _"
	}
	if !registry.IsValidURL(v.URL) {
		f.urlErr = "Enter an absolute URL"
	}
	return f.linkErr == "" && f.urlErr == ""
}

// revalidate clears an inline error once its field becomes valid
func (f *formState) revalidate() {
	v := f.value()
	if f.linkErr != "" && registry.IsValidLink(v.Path) {
		f.linkErr = ""
	}
	if f.urlErr != "" && registry.IsValidURL(v.URL) {
		f.urlErr = ""
	}
}

// applyError maps a failed append onto the form
func (f *formState) applyError(err error) {
	switch errors.GetCode(err) {
	case errors.ErrInvalidLink:
		f.linkErr = userMessage(err)
		f.setFocus(fieldLink)
	case errors.ErrAlreadyExists:
		f.linkErr = "Link already exists"
		f.setFocus(fieldLink)
	case errors.ErrInvalidURL:
		f.urlErr = userMessage(err)
		f.setFocus(fieldURL)
	default:
		f.submitErr = userMessage(err)
	}
}

// updateForm handles updates while the create form is shown
func (m mainModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := m.form

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			m.phase = phaseList
			m.form = nil
			return m, nil
		case "tab", "shift+tab", "up", "down":
			return m, f.setFocus(1 - f.focus)
		case "enter":
			if f.submitting {
				return m, nil
			}
			f.submitErr = ""
			if !f.validate() {
				if f.linkErr != "" {
					return m, f.setFocus(fieldLink)
				}
				return m, f.setFocus(fieldURL)
			}
			f.submitting = true
			return m, m.submit(f.value())
		}
	}

	if f.submitting {
		return m, nil
	}

	var cmd tea.Cmd
	if f.focus == fieldLink {
		f.link, cmd = f.link.Update(msg)
	} else {
		f.url, cmd = f.url.Update(msg)
	}
	f.revalidate()
	return m, cmd
}

// renderForm builds the create-link view
func (m mainModel) renderForm() string {
	f := m.form
	width := maxInt(m.width, 80)

	b := getBuilder()
	defer putBuilder(b)

	b.WriteString(styles.Heading.Render("Create a new link"))
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	renderField(b, "Link", f.link.View(), f.linkErr, f.focus == fieldLink)
	renderField(b, "URL", f.url.View(), f.urlErr, f.focus == fieldURL)

	if v := f.value(); registry.IsValidLink(v.Path) {
		b.WriteString(styles.Dim.Render("  " + m.shortURL(v.Path)))
	}
	b.WriteString("\n\n")

	switch {
	case f.submitting:
		b.WriteString(styles.Dim.Render("  Saving..."))
	case f.submitErr != "":
		b.WriteString(styles.Error.Render("  " + truncateString(f.submitErr, width-2)))
	}
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(styles.Dim.Render("  Enter create • Tab switch field • ESC back"))
	return b.String()
}

// renderField writes a labelled input with its inline error line
func renderField(b *strings.Builder, label, input, errMsg string, focused bool) {
	marker := "  "
	if focused {
		marker = styles.Cursor.Render("▶ ")
	}
	b.WriteString(marker)
	b.WriteString(styles.Label.Render(label))
	b.WriteString("\n  ")
	b.WriteString(input)
	b.WriteString("\n")
	if errMsg != "" {
		b.WriteString(styles.Error.Render("  " + errMsg))
	}
	b.WriteString("\n")
}
