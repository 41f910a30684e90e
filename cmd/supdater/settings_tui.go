package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sershocode/supdater/internal/config"
)

var errSettingsCancelled = errors.New("settings entry cancelled")

// Fields of the settings form, in tab order.
const (
	fieldAddress = iota
	fieldUser
	fieldPassword
	fieldFolder
	fieldCount
)

const (
	txtSettingsTitle  = "Connection settings for this run"
	txtSettingsHelp   = "Tab/Enter: next field. Shift+Tab: previous. Enter on the last field: start. Esc: cancel."
	txtRequiredFields = "Server address and folder are required"
)

var fieldLabels = [fieldCount]string{
	fieldAddress:  "Server address",
	fieldUser:     "User (empty for anonymous)",
	fieldPassword: "Password",
	fieldFolder:   "Folder",
}

var (
	focusedStyle     = green
	helpStyle        = gray
	errorTextStyle   = red
	placeholderStyle = gray
	titleStyle       = cyan.Bold(true)
)

type settingsModel struct {
	inputs       []textinput.Model
	focus        int
	errorMessage string
	submitted    bool
	cancelled    bool
}

func newSettingsModel(cfg *config.Config) settingsModel {
	values := [fieldCount]string{
		fieldAddress:  cfg.FtpAddress,
		fieldUser:     cfg.User,
		fieldPassword: cfg.Password,
		fieldFolder:   cfg.SyncFolder,
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 256
		in.Width = 48
		in.PromptStyle = focusedStyle
		in.TextStyle = focusedStyle
		in.PlaceholderStyle = placeholderStyle
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[fieldAddress].Placeholder = "ftp://host:21"
	inputs[fieldFolder].Placeholder = "/pub/game"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldAddress].Focus()

	return settingsModel{inputs: inputs}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m settingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyShiftTab, tea.KeyUp:
		return m.moveFocus(-1)
	case tea.KeyTab, tea.KeyDown:
		return m.moveFocus(1)
	case tea.KeyEnter:
		if m.focus < fieldCount-1 {
			return m.moveFocus(1)
		}
		return m.submit()
	}

	m.errorMessage = ""
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m settingsModel) moveFocus(delta int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	return m, m.inputs[m.focus].Focus()
}

func (m settingsModel) submit() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.value(fieldAddress)) == "" || strings.TrimSpace(m.value(fieldFolder)) == "" {
		m.errorMessage = txtRequiredFields
		return m, nil
	}
	m.submitted = true
	return m, tea.Quit
}

func (m settingsModel) value(field int) string {
	return m.inputs[field].Value()
}

// apply copies the entered values into cfg.
func (m settingsModel) apply(cfg *config.Config) {
	cfg.FtpAddress = strings.TrimSpace(m.value(fieldAddress))
	cfg.User = strings.TrimSpace(m.value(fieldUser))
	cfg.Password = m.value(fieldPassword)
	cfg.SyncFolder = strings.TrimSpace(m.value(fieldFolder))
}

func (m settingsModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(txtSettingsTitle) + "\n\n")
	for i, in := range m.inputs {
		label := fieldLabels[i]
		if i == m.focus {
			label = focusedStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, in.View())
	}
	if m.errorMessage != "" {
		b.WriteString(errorTextStyle.Render(m.errorMessage) + "\n\n")
	}
	b.WriteString(helpStyle.Render(txtSettingsHelp) + "\n")
	return b.String()
}

// runSettingsTUI lets the user override the connection settings of cfg.
func runSettingsTUI(ctx context.Context, cfg *config.Config) error {
	p := tea.NewProgram(newSettingsModel(cfg), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("settings form: %w", err)
	}

	m, ok := final.(settingsModel)
	if !ok || !m.submitted {
		return errSettingsCancelled
	}
	m.apply(cfg)
	return nil
}
