package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/entrhq/formfill/pkg/fields"
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = errors.New("prompt aborted")

// surveyConfirmer asks on the terminal before filling a sensitive field.
type surveyConfirmer struct{}

func (surveyConfirmer) Confirm(ctx context.Context, field fields.Descriptor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	label := field.Label
	if label == "" {
		label = field.UID
	}
	var out bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%q looks sensitive. Fill it anyway?", label),
		Help:    "Flagged by " + field.SensitiveReason,
		Default: false,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, errAborted
		}
		return false, err
	}
	return out, nil
}
