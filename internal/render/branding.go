package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const AppName = "linkboard"

var LogoLines = []string{
	"█▀▀▄ ▄▀▀▄ █▀▀▄ ▀█▀ █  █ ▀█▀",
	"█▀▀▄ █  █ █▀▀▄  █  ▀▄▄▀  █ ",
	"▀▀▀  ▀▀▀  ▀  ▀ ▀▀▀  ▀▀  ▀▀▀",
}

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#FFA86B"),
	lipgloss.Color("#4ECDC4"),
}

var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	TextColor  = lipgloss.Color("#EAEAEA")
	MutedColor = lipgloss.Color("#94A3B8")

	FavoriteColor = lipgloss.Color("#FFE66D")
	ErrorColor    = lipgloss.Color("#EF4444")
	SuccessColor  = lipgloss.Color("#10B981")
)

// Styled components
var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	StoryTitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	HostStyle = lipgloss.NewStyle().
			Foreground(AccentColor)

	MetaStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	FavoriteStyle = lipgloss.NewStyle().
			Foreground(FavoriteColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	SuccessMessageStyle = lipgloss.NewStyle().
				Foreground(SuccessColor)
)

// CompactBanner stacks the bare logo over a hint line.
func CompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the boxed logo with a version tagline.
func Banner(version string) string {
	lines := make([]string, len(LogoLines)+1)
	copy(lines, LogoLines)

	versionTag := version
	if versionTag != "" && versionTag != "dev" {
		if versionTag[0] != 'v' && versionTag[0] != 'V' {
			versionTag = "v" + versionTag
		}
		lines = append(lines, fmt.Sprintf("Stories worth sharing %s", versionTag))
	} else {
		lines = append(lines, "Stories worth sharing")
	}

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3)

	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))
}
