package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/brewlink/internal/protocol"
)

type field struct {
	key   string
	value string
}

func renderSection(title string, fields []field) string {
	lines := []string{SectionTitleStyle.Render(title)}
	for _, f := range fields {
		lines = append(lines, ResultKeyStyle.Render("  "+f.key)+" "+ResultValueStyle.Render(f.value))
	}
	return strings.Join(lines, "\n")
}

func pidString(p protocol.PIDConstants) string {
	return fmt.Sprintf("P=%d I=%d D=%d", p.Proportional, p.Integral, p.Derivative)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// RenderMachineState lays out a machine configuration record as labelled
// sections.
func RenderMachineState(s *protocol.MachineState) string {
	activeProfile := fmt.Sprintf("%d", s.ActiveProfile)
	if s.ActiveProfile < 3 {
		activeProfile = string(rune('A' + s.ActiveProfile))
	}

	sections := []string{
		renderSection("Temperatures", []field{
			{"Unit", s.TemperatureUnit.String()},
			{"Coffee", fmt.Sprintf("%d°", s.CoffeeTemperature)},
			{"Steam", fmt.Sprintf("%d°", s.SteamTemperature)},
		}),
		renderSection("PID", []field{
			{"Coffee boiler", pidString(s.CoffeePID)},
			{"Group head", pidString(s.GroupPID)},
			{"Steam boiler", pidString(s.SteamPID)},
		}),
		renderSection("Pressure profiles", []field{
			{"A", s.ProfileA.String()},
			{"B", s.ProfileB.String()},
			{"C", s.ProfileC.String()},
			{"Active", activeProfile},
		}),
		renderSection("Machine", []field{
			{"Language", s.Language.String()},
			{"Water source", s.WaterSource.String()},
			{"Steam clean time", fmt.Sprintf("%d", s.SteamCleanTime)},
			{"Service boiler", onOff(s.IsServiceBoilerOn)},
			{"Standby", onOff(s.IsMachineInStandby)},
		}),
		renderSection("Counters", []field{
			{"Coffee cycles", fmt.Sprintf("%d", s.CoffeeCyclesTotal)},
			{"Since reset", fmt.Sprintf("%d", s.CoffeeCyclesSubtotal)},
		}),
		renderSection("Timers", []field{
			{"Auto on", s.AutoOnTime.String()},
			{"Auto standby", s.AutoStandbyTime.String()},
			{"Skip day", s.AutoSkipDay.String()},
		}),
	}
	return strings.Join(sections, "\n\n")
}

// RenderDisplayState shows the live readings next to a framed copy of the
// machine's display.
func RenderDisplayState(s *protocol.DisplayState) string {
	readings := renderSection("Now", []field{
		{"Coffee", fmt.Sprintf("%d°", s.CoffeeTemperature)},
		{"Steam", fmt.Sprintf("%d°", s.SteamTemperature)},
		{"Pump", fmt.Sprintf("%g bar", float64(s.PumpPressure)/10)},
		{"Clock", fmt.Sprintf("%s %s", s.Day, s.Time)},
		{"Status", fmt.Sprintf("0x%02X", s.Status)},
	})

	lines := make([]string, len(s.DisplayText))
	for i, line := range s.DisplayText {
		lines[i] = protocol.EscapeUnprintables(line)
	}
	display := DisplayStyle.Render(strings.Join(lines, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, readings, "   ", display)
}

// RenderWireLine formats one message of a console exchange, with an arrow
// for its direction and a checksum mark.
func RenderWireLine(sent bool, text string, checksumOK bool) string {
	marker, style := RecvMarker, ReceivedStyle
	if sent {
		marker, style = SentMarker, SentStyle
	}
	return fmt.Sprintf("%s %s %s", style.Render(marker), style.Render(protocol.EscapeUnprintables(text)), ChecksumMark(checksumOK))
}
