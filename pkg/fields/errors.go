package fields

import "errors"

// DOM-state and permission failures reported by FillField. Callers treat all
// of them as a skip of one field.
var (
	ErrFieldNotFound        = errors.New("field not found")
	ErrSensitiveRefused     = errors.New("refusing sensitive fill")
	ErrEmptyValue           = errors.New("empty value")
	ErrNoMatchingOption     = errors.New("no matching option")
	ErrInvalidCheckboxValue = errors.New("invalid checkbox value")
	ErrRadioWithoutGroup    = errors.New("radio has no name group")
	ErrNoMatchingRadio      = errors.New("no matching radio")
	ErrUnsupportedControl   = errors.New("unsupported control")
)
