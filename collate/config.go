package collate

import (
	"fmt"
	"strings"
)

// Config is the serializable form of collator options, as read from JSON
// or YAML files. Empty fields are unset.
type Config struct {
	Strength  string `json:"strength,omitempty"`
	Alternate string `json:"alternate,omitempty"`
	Backwards bool   `json:"backwards,omitempty"`
	CaseLevel string `json:"caseLevel,omitempty"`
	CaseFirst string `json:"caseFirst,omitempty"`

	// Rules holds inline tailoring rules; RulesFile names a file of them.
	Rules     string `json:"rules,omitempty"`
	RulesFile string `json:"rulesFile,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// Options validates the config and converts it to Options.
func (c *Config) Options() (Options, error) {
	var o Options
	var err error
	if c.Strength != "" {
		if o.Strength, err = ParseStrength(c.Strength); err != nil {
			return o, err
		}
	}
	if c.Alternate != "" {
		if o.Variable, err = ParseVariableWeighting(c.Alternate); err != nil {
			return o, err
		}
	}
	if c.Backwards {
		o.L2Order = Backward
	}
	if c.CaseLevel != "" {
		if o.CaseLevel, err = ParseSwitch(c.CaseLevel); err != nil {
			return o, err
		}
	}
	if c.CaseFirst != "" {
		if o.CaseFirst, err = ParseCaseFirst(c.CaseFirst); err != nil {
			return o, err
		}
	}
	return o, nil
}

// ParseStrength accepts a level number (1-4), I, or a strength name.
func ParseStrength(s string) (Strength, error) {
	switch strings.ToLower(s) {
	case "1", "primary":
		return Primary, nil
	case "2", "secondary":
		return Secondary, nil
	case "3", "tertiary":
		return Tertiary, nil
	case "4", "quaternary":
		return Quaternary, nil
	case "i", "5", "identical":
		return Identical, nil
	}
	return 0, fmt.Errorf("collate: invalid strength %q", s)
}

// ParseVariableWeighting accepts shifted or non-ignorable.
func ParseVariableWeighting(s string) (VariableWeighting, error) {
	switch strings.ToLower(s) {
	case "shifted":
		return Shifted, nil
	case "non-ignorable", "nonignorable":
		return NonIgnorable, nil
	}
	return 0, fmt.Errorf("collate: invalid alternate %q", s)
}

// ParseSwitch accepts on or off.
func ParseSwitch(s string) (Switch, error) {
	switch strings.ToLower(s) {
	case "on", "true":
		return On, nil
	case "off", "false":
		return Off, nil
	}
	return 0, fmt.Errorf("collate: invalid switch %q", s)
}

// ParseCaseFirst accepts upper, lower or off.
func ParseCaseFirst(s string) (CaseFirst, error) {
	switch strings.ToLower(s) {
	case "upper":
		return UpperFirst, nil
	case "lower":
		return LowerFirst, nil
	case "off":
		return CaseFirstOff, nil
	}
	return 0, fmt.Errorf("collate: invalid caseFirst %q", s)
}
