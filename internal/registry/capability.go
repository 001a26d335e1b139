package registry

import "fmt"

// Capability tags how the shell renders a field component.
type Capability int

const (
	CapText        Capability = iota // single-line text input
	CapTextArea                      // multi-line text
	CapSelect                        // single choice from a vocabulary
	CapMultiSelect                   // several choices from a vocabulary
	CapDate                          // EDTF-style date string
	CapList                          // repeatable structured entries (creators, identifiers)
	CapFiles                         // file uploader
	CapCommunity                     // community picker
	CapAccess                        // access/visibility controls
	CapAction                        // buttons (submit, delete) governing no value
	CapDisplay                       // read-only display
)

var capabilityNames = map[Capability]string{
	CapText:        "text",
	CapTextArea:    "textarea",
	CapSelect:      "select",
	CapMultiSelect: "multiselect",
	CapDate:        "date",
	CapList:        "list",
	CapFiles:       "files",
	CapCommunity:   "community",
	CapAccess:      "access",
	CapAction:      "action",
	CapDisplay:     "display",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// Valid reports whether c is one of the declared capabilities.
func (c Capability) Valid() bool {
	_, ok := capabilityNames[c]
	return ok
}

// Editable reports whether the shell renders an editable input for c.
func (c Capability) Editable() bool {
	switch c {
	case CapText, CapTextArea, CapSelect, CapDate:
		return true
	case CapMultiSelect, CapList, CapFiles, CapCommunity, CapAccess, CapAction, CapDisplay:
		return false
	}
	return false
}

// ParseCapability maps a config tag back to its Capability.
func ParseCapability(name string) (Capability, error) {
	for c, n := range capabilityNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Capability) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCapability, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so config files can name
// capabilities by tag.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, err := ParseCapability(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
