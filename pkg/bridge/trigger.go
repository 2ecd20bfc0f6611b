package bridge

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// TriggerKind identifies a raw interaction on a grid cell.
type TriggerKind uint8

// Trigger kinds.
const (
	TriggerDoubleClick TriggerKind = iota
	TriggerEnter
	TriggerInput
	TriggerPaste
	TriggerBlur
	TriggerEscape
	TriggerSliderChange
	TriggerSliderRelease
	TriggerToggle
	TriggerSelectOption
	TriggerRemoveOption
	TriggerIncrement
	TriggerDecrement
)

var triggerNames = map[TriggerKind]string{
	TriggerDoubleClick:   "double_click",
	TriggerEnter:         "enter",
	TriggerInput:         "input",
	TriggerPaste:         "paste",
	TriggerBlur:          "blur",
	TriggerEscape:        "escape",
	TriggerSliderChange:  "slider_change",
	TriggerSliderRelease: "slider_release",
	TriggerToggle:        "toggle",
	TriggerSelectOption:  "select_option",
	TriggerRemoveOption:  "remove_option",
	TriggerIncrement:     "increment",
	TriggerDecrement:     "decrement",
}

// String returns the wire name of the trigger kind.
func (k TriggerKind) String() string {
	if name, ok := triggerNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseTriggerKind converts a wire name to a TriggerKind.
func ParseTriggerKind(s string) (TriggerKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range triggerNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger %q", s)
}

// MarshalText writes the wire name.
func (k TriggerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a wire name.
func (k *TriggerKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTriggerKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Trigger is one raw interaction observed by a front end.
type Trigger struct {
	Kind TriggerKind `json:"kind"`
	// Target is the cell the interaction happened on. Enter, Blur and Escape
	// act on the active session when one exists.
	Target core.EditTarget `json:"target"`
	// Value is the cell's current stored value, used as the session's initial value.
	Value core.Value `json:"value"`
	// Text carries typed or pasted text and picked options.
	Text string `json:"text,omitempty"`
	// Number carries slider positions.
	Number float64 `json:"number,omitempty"`
	// Shift is set when Enter was pressed with shift held.
	Shift bool `json:"shift,omitempty"`
}
