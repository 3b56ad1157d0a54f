package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// runSummary describes a finished run for the stderr report.
type runSummary struct {
	Mode          runMode
	Format        string
	Schema        string
	Output        string
	Files         int
	FailedFiles   int
	Records       int64
	WriteFailures int64
	Sources       map[string]int64
	Elapsed       time.Duration
}

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

func printStartupBanner(w io.Writer, cfg appConfig, sources []string, processorName string) {
	check := greenStyle.Render("●")
	dot := dimStyle.Render("●")

	logo := cyanStyle.Bold(true).Render(`
    ╔═╗╦╔═╗╔╦╗
    ╚═╗║╠╣  ║
    ╚═╝╩╚   ╩ `)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+dimStyle.Render("v"+version))
	lines = append(lines, "")

	separator := dimStyle.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Inputs"))
	lines = append(lines, "")
	if len(sources) == 0 {
		lines = append(lines, fmt.Sprintf("    %s  Sources        %s", dot, dimStyle.Render("none")))
	}
	for _, name := range sources {
		lines = append(lines, fmt.Sprintf("    %s  Source         %s", check, cyanStyle.Render(shortenPath(name))))
	}
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Gateway"))
	lines = append(lines, "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyanStyle.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dimStyle.Render("disabled")))
	}
	if cfg.TCPEnabled {
		lines = append(lines, fmt.Sprintf("    %s  TCP Ingest     %s", check, cyanStyle.Render(cfg.TCPAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  TCP Ingest     %s", dot, dimStyle.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Runtime"))
	lines = append(lines, "")
	if processorName != "" {
		lines = append(lines, fmt.Sprintf("    %s  Processor      %s", check, dimStyle.Render(processorName)))
	}
	lines = append(lines, fmt.Sprintf("    %s  Output         %s", check, dimStyle.Render(describeOutput(cfg.Output, cfg.Format, cfg.schema.Name))))
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dimStyle.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dimStyle.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dimStyle.Render("Press ")+yellowStyle.Render("Ctrl+C")+dimStyle.Render(" to stop"))
	lines = append(lines, "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func printRunSummary(w io.Writer, s runSummary) {
	check := greenStyle.Render("●")
	warn := redStyle.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, boldStyle.Render("    sift "+s.Mode.String()+" run"))
	lines = append(lines, "")

	if s.Mode == modeBatch {
		marker := check
		if s.FailedFiles > 0 {
			marker = warn
		}
		lines = append(lines, fmt.Sprintf("    %s  Files          %s", marker,
			cyanStyle.Render(fmt.Sprintf("%d read, %d skipped", s.Files-s.FailedFiles, s.FailedFiles))))
	}

	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("    %s  Source         %s %s", check,
			cyanStyle.Render(shortenPath(name)), dimStyle.Render(fmt.Sprintf("%d lines", s.Sources[name]))))
	}

	lines = append(lines, fmt.Sprintf("    %s  Records        %s", check, cyanStyle.Render(fmt.Sprintf("%d", s.Records))))
	if s.WriteFailures > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Write errors   %s", warn, redStyle.Render(fmt.Sprintf("%d", s.WriteFailures))))
	}
	lines = append(lines, fmt.Sprintf("    %s  Output         %s", check, dimStyle.Render(describeOutput(s.Output, s.Format, s.Schema))))
	lines = append(lines, fmt.Sprintf("    %s  Elapsed        %s", check, dimStyle.Render(s.Elapsed.Round(time.Millisecond).String())))
	lines = append(lines, "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func describeOutput(path, format, schema string) string {
	if path == "" || path == "-" {
		path = "stdout"
	}
	return fmt.Sprintf("%s (%s, %s)", shortenPath(path), format, schema)
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if home != "" && strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
