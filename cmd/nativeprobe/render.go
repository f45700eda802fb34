package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/contextune/nativeload/native"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(12)
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)

func renderDescriptor(d native.PlatformDescriptor) string {
	rows := []string{titleStyle.Render("Platform")}
	for _, kv := range [][2]string{
		{"platform", d.Platform.String()},
		{"os", d.OS.String()},
		{"arch", d.Arch.String()},
		{"library", d.LibraryFileName},
		{"directory", d.Directory},
		{"resource", d.ResourceKey()},
	} {
		rows = append(rows, sectionStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(kv[0]), kv[1])))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderAttempts(attempts []native.LoadAttempt) string {
	rows := []string{titleStyle.Render("Attempts")}
	if len(attempts) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(rows, sectionStyle.Render("none"))...)
	}
	for i, a := range attempts {
		mark := okStyle.Render("ok  ")
		if a.Outcome == native.OutcomeFailure {
			mark = failStyle.Render("FAIL")
		}
		line := fmt.Sprintf("%d. %s %-22s %8s", i+1, mark, a.Strategy, a.Elapsed.Round(time.Microsecond))
		if a.ResolvedPath != "" {
			line += "  " + a.ResolvedPath
		}
		rows = append(rows, sectionStyle.Render(line))
		if a.Err != nil {
			rows = append(rows, detailStyle.Render(a.Err.Error()))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderSearchPath(paths []string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Search path"),
		sectionStyle.Render(strings.Join(paths, "\n")),
	)
}

func renderSuccess(msg string) string {
	return okStyle.Render(msg)
}

func renderFailure(msg string) string {
	return failStyle.Render(msg)
}
