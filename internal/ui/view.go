package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyrodium/roBa-writer/internal/flash"
)

// Styles
var (
	// Color palette - Tokyo Night inspired
	primaryColor    = lipgloss.Color("#7aa2f7") // blue
	secondaryColor  = lipgloss.Color("#9ece6a") // green
	warningColor    = lipgloss.Color("#e0af68") // yellow
	errorColor      = lipgloss.Color("#f7768e") // red
	successColor    = lipgloss.Color("#9ece6a") // green
	textColor       = lipgloss.Color("#c0caf5") // foreground
	dimColor        = lipgloss.Color("#565f89") // comment
	backgroundColor = lipgloss.Color("#1a1b26") // background
	borderColor     = lipgloss.Color("#414868") // border

	asciiStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Align(lipgloss.Center).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Align(lipgloss.Center).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Align(lipgloss.Center).
			MarginBottom(1)

	menuItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingRight(2).
			Foreground(textColor)

	selectedMenuItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				PaddingRight(2).
				Background(primaryColor).
				Foreground(backgroundColor).
				Bold(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor)

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(2, 3).
			Margin(1)

	warningStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(warningColor).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(errorColor).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor)

	successStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(successColor).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(successColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Align(lipgloss.Center).
			Italic(true).
			MarginTop(2)

	infoBoxStyle = lipgloss.NewStyle().
			Background(borderColor).
			Foreground(textColor).
			Padding(0, 1).
			Margin(0).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor)
)

// ASCII art for the program name
const asciiArt = ` ▄▄▄  ▗▄▖ ▗▄▄▖  ▗▄▖
 █  █ █ ▝▌ █  █ █ ▝▌
 █▀▀▄ █  █ █▀▀▄ █▀▀█
 ▀  ▀ ▝▄▄▘ ▀▄▄▀ ▀  ▀  writer`

// View implements tea.Model and renders the active screen.
func (m Model) View() string {
	switch m.screen {
	case screenModeSelect:
		return m.renderModeMenu()
	case screenProgress:
		return m.renderProgress()
	case screenStepFailed:
		return m.renderStepFailed()
	case screenComplete:
		return m.renderComplete()
	case screenError:
		return m.renderError()
	case screenAbout:
		return m.renderAbout()
	}
	return ""
}

// renderModeMenu renders the operation mode selection menu.
func (m Model) renderModeMenu() string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n\n")

	for i, choice := range m.choices {
		if m.cursor == i {
			s.WriteString(selectedMenuItemStyle.Render("❯ "+choice) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+choice) + "\n")
		}
	}

	info := infoBoxStyle.Render(`🔁 Full Flash: settings reset, then left half, then right half
⚡ Both Halves: keep settings, flash left then right
🎯 Right Only: flash just the central (right) half`)
	s.WriteString("\n" + info)

	if len(m.config.SkippedFiles) > 0 {
		warn := warningStyle.Render(fmt.Sprintf("⚠️  %d unrecognized .uf2 file(s) ignored", len(m.config.SkippedFiles)))
		s.WriteString("\n" + warn)
	}

	s.WriteString("\n" + m.renderHelp())

	content := borderStyle.Width(m.width - 8).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderProgress renders the live flashing progress screen.
func (m Model) renderProgress() string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n")
	s.WriteString(titleStyle.Render("🔄 Flashing in Progress") + "\n\n")

	if m.plan != nil {
		s.WriteString("⌨️  Plan: " + m.plan.Mode.String() + "\n")
	}
	if m.config.LogPath != "" {
		s.WriteString("📋 Log: " + m.config.LogPath + "\n")
	}
	s.WriteString("\n")

	// Step checklist
	if m.plan != nil {
		for i, step := range m.plan.Steps {
			marker := "  ○ "
			if m.haveProg {
				switch {
				case i < m.progress.StepIndex,
					i == m.progress.StepIndex && m.progress.State == flash.StepComplete:
					marker = "  ✅ "
				case i == m.progress.StepIndex:
					marker = "  ▶️ "
				}
			}
			s.WriteString(marker + step.Label + " (" + step.File.Name() + ")\n")
		}
		s.WriteString("\n")
	}

	if m.haveProg {
		state := m.progress.State
		line := fmt.Sprintf("Step %d/%d: %s - %s",
			m.progress.StepIndex+1, m.progress.StepCount, m.progress.StepLabel, state)
		s.WriteString(subtitleStyle.Render(line) + "\n")

		if instruction := stepInstruction(m.progress); instruction != "" {
			s.WriteString(infoBoxStyle.Render(instruction) + "\n")
		}
	} else {
		s.WriteString(subtitleStyle.Render("Starting volume monitor...") + "\n")
	}

	if m.message != "" {
		s.WriteString("\n" + lipgloss.NewStyle().
			Foreground(secondaryColor).
			Align(lipgloss.Center).
			Render(m.message) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render("Please wait... • Ctrl+C: abort"))

	content := borderStyle.Width(m.width - 4).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// stepInstruction returns the operator guidance line for the current
// sub-state: what to physically do next. The wait duration is computed at
// render time, so the per-second tick keeps it moving between engine reports.
func stepInstruction(p flash.Progress) string {
	switch p.State {
	case flash.AwaitingDevice:
		return fmt.Sprintf("🔌 Connect the %s over USB and double-tap the reset button\n⏱️  waited %s",
			p.StepLabel, waited(p))
	case flash.Copying:
		return "✍️  Writing firmware - do not unplug the keyboard"
	case flash.AwaitingDeparture:
		return fmt.Sprintf("⏳ Waiting for the device to reboot with the new firmware\n⏱️  waited %s",
			waited(p))
	}
	return ""
}

// waited reports how long the current sub-state has been active.
func waited(p flash.Progress) time.Duration {
	return time.Since(p.Since).Round(time.Second)
}

// renderStepFailed renders the retry/skip/abort decision menu.
func (m Model) renderStepFailed() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("⚠️  Step Failed") + "\n\n")

	if m.pendingDecision != nil {
		detail := fmt.Sprintf("Step %d (%s) failed:\n%v",
			m.pendingDecision.stepIndex+1, m.pendingDecision.step.Label, m.pendingDecision.err)
		s.WriteString(warningStyle.Render(detail) + "\n\n")
	}

	for i, choice := range m.choices {
		if m.cursor == i {
			s.WriteString(selectedMenuItemStyle.Render("❯ "+choice) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+choice) + "\n")
		}
	}

	s.WriteString("\n" + infoBoxStyle.Render(`🔄 Retry: unplug the keyboard, then choose Retry and redo the reset
⏭️ Skip: move on without this step (run ends as partial success)`))
	s.WriteString("\n" + helpStyle.Render("↑/↓: navigate • enter: select"))

	content := borderStyle.Width(m.width - 8).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderComplete renders the run completion screen.
func (m Model) renderComplete() string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n")

	if m.result != nil && m.result.Outcome == flash.PartialSuccess {
		s.WriteString(titleStyle.Render("🟡 Flashing Partially Complete") + "\n\n")
		msg := fmt.Sprintf("%d step(s) completed, %d skipped", len(m.result.Completed), len(m.result.Skipped))
		s.WriteString(warningStyle.Render(msg) + "\n\n")
		for _, step := range m.result.Skipped {
			s.WriteString(menuItemStyle.Render("⏭️ skipped: "+step.Label) + "\n")
		}
	} else {
		s.WriteString(titleStyle.Render("✅ Flashing Complete") + "\n\n")
		s.WriteString(successStyle.Render("All firmware written - the keyboard is ready to use") + "\n")
	}

	s.WriteString("\n" + helpStyle.Render("🎉 Press any key to exit"))

	content := borderStyle.Width(m.width - 8).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderError renders errors that require manual dismissal.
func (m Model) renderError() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("❌ Error") + "\n\n")
	s.WriteString(errorStyle.Render(m.message) + "\n\n")

	if m.result != nil {
		s.WriteString(helpStyle.Render("Press any key to exit"))
	} else {
		s.WriteString(helpStyle.Render("Press any key to return to the menu"))
	}

	content := borderStyle.Width(m.width - 8).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderAbout renders the about screen.
func (m Model) renderAbout() string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n")
	s.WriteString(titleStyle.Render("ℹ️ About "+AppName) + "\n\n")

	about := GetFullVersionString() + ` - ` + AppDesc + `

Flashes ZMK firmware onto a roBa split keyboard
(Seeed XIAO nRF52840, UF2 mass-storage bootloader).

Connect a half, double-tap reset, and the tool detects the
bootloader volume, writes the right firmware, and waits for
the reboot - for every step of the selected plan.

Powered by Bubble Tea & Lipgloss

Press any key to return to the menu`

	s.WriteString(lipgloss.NewStyle().
		Foreground(textColor).
		Margin(0, 2).
		Align(lipgloss.Left).
		Render(about))

	content := borderStyle.Width(m.width - 8).Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderHeader renders the ASCII art banner with title and subtitle.
func (m Model) renderHeader() string {
	ascii := asciiStyle.Render(asciiArt)
	title := titleStyle.Render(AppDesc)
	subtitle := subtitleStyle.Render(GetSubtitle())

	return ascii + "\n" + title + "\n" + subtitle
}

// renderHelp renders the standard navigation help line.
func (m Model) renderHelp() string {
	return helpStyle.Render("↑/↓: navigate • enter: select • q: quit")
}
