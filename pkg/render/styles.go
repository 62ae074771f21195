/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package render turns a finished report into terminal, JSON, or log output.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/fleetvet/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styles struct {
	header  lipgloss.Style
	device  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	errored lipgloss.Style
	skipped lipgloss.Style
	muted   lipgloss.Style
	banner  lipgloss.Style
}

func newStyles() styles {
	return styles{
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		device: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)).
			Bold(true),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		failure: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		errored: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)).
			Bold(true),
		skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaPurple)).
			Padding(0, 1),
	}
}

func (s styles) forStatus(status models.Status) lipgloss.Style {
	switch status {
	case models.StatusSuccess:
		return s.success
	case models.StatusFailure:
		return s.failure
	case models.StatusError:
		return s.errored
	case models.StatusSkipped:
		return s.skipped
	default:
		return s.muted
	}
}
