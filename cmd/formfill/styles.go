package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/formfill/pkg/types"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA") // errors and declines
	mintGreen  = lipgloss.Color("#A8E6CF") // filled fields
	mutedGray  = lipgloss.Color("#6B7280") // secondary text
	amber      = lipgloss.Color("#FCD34D") // skips and retries

	headerStyle  = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	filledStyle  = lipgloss.NewStyle().Foreground(mintGreen)
	skippedStyle = lipgloss.NewStyle().Foreground(amber)
	errorStyle   = lipgloss.NewStyle().Foreground(salmonPink)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedGray)
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mintGreen).
			Padding(0, 1)
)

// printer renders run events as styled lines.
type printer struct {
	w       io.Writer
	verbose bool
}

func (p *printer) handle(e *types.Event) {
	switch e.Type {
	case types.EventTypeRunStart:
		fmt.Fprintln(p.w, headerStyle.Render(e.Message))
	case types.EventTypeFieldProgress:
		fmt.Fprintln(p.w, fieldStyle(e.Field.Status).Render(e.Message))
	case types.EventTypeBatchRetry:
		fmt.Fprintln(p.w, skippedStyle.Render(e.Message))
	case types.EventTypeBatchFailed, types.EventTypeRunAbandoned:
		fmt.Fprintln(p.w, errorStyle.Render(e.Message))
	case types.EventTypeConsentRequest:
		c := e.Consent
		fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf("%q looks sensitive (%s). Fill it anyway? [y/N]", c.Label, c.Reason)))
	case types.EventTypeConsentTimeout:
		fmt.Fprintln(p.w, errorStyle.Render("No answer for "+e.Consent.Label+"; not filled"))
	case types.EventTypeNoFields:
		fmt.Fprintln(p.w, mutedStyle.Render(e.Message))
	case types.EventTypeSummary:
		s := e.Summary
		body := fmt.Sprintf("%s\n%d fields, %d unique, %d calls, ~%d prompt tokens, %s",
			e.Message, s.Fields, s.Unique, s.Calls, s.EstimatedTokens, s.Duration)
		fmt.Fprintln(p.w, summaryStyle.Render(body))
	default:
		if p.verbose && e.Message != "" {
			fmt.Fprintln(p.w, mutedStyle.Render(e.Message))
		}
	}
}

func fieldStyle(status types.FieldStatus) lipgloss.Style {
	switch status {
	case types.FieldStatusFilled:
		return filledStyle
	case types.FieldStatusError, types.FieldStatusDeclined:
		return errorStyle
	}
	return skippedStyle
}
