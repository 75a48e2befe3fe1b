package collate

import "fmt"

// VariableWeighting controls how variable elements (spaces, punctuation)
// take part in comparison.
type VariableWeighting uint8

const (
	NonIgnorable VariableWeighting = iota + 1
	Shifted
)

func (v VariableWeighting) String() string {
	switch v {
	case NonIgnorable:
		return "non-ignorable"
	case Shifted:
		return "shifted"
	default:
		return "unset"
	}
}

// L2Order is the direction in which secondary weights are compared.
type L2Order uint8

const (
	Forward L2Order = iota + 1
	Backward
)

func (o L2Order) String() string {
	switch o {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unset"
	}
}

// Switch is an on/off setting that can also be left unset.
type Switch uint8

const (
	Off Switch = iota + 1
	On
)

func (s Switch) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "unset"
	}
}

// CaseFirst selects whether upper or lower case sorts first at the tertiary level.
type CaseFirst uint8

const (
	CaseFirstOff CaseFirst = iota + 1
	UpperFirst
	LowerFirst
)

func (c CaseFirst) String() string {
	switch c {
	case CaseFirstOff:
		return "off"
	case UpperFirst:
		return "upper"
	case LowerFirst:
		return "lower"
	default:
		return "unset"
	}
}

// Options configures a Collator. A zero field is unset: it takes the table
// default, or the built-in default when the table has none.
type Options struct {
	Strength  Strength
	Variable  VariableWeighting
	L2Order   L2Order
	CaseLevel Switch
	CaseFirst CaseFirst
}

// DefaultOptions are used for every field left unset.
var DefaultOptions = Options{
	Strength:  Tertiary,
	Variable:  NonIgnorable,
	L2Order:   Forward,
	CaseLevel: Off,
	CaseFirst: CaseFirstOff,
}

// Merge returns o with every field that is set in over replaced.
func (o Options) Merge(over Options) Options {
	if over.Strength != 0 {
		o.Strength = over.Strength
	}
	if over.Variable != 0 {
		o.Variable = over.Variable
	}
	if over.L2Order != 0 {
		o.L2Order = over.L2Order
	}
	if over.CaseLevel != 0 {
		o.CaseLevel = over.CaseLevel
	}
	if over.CaseFirst != 0 {
		o.CaseFirst = over.CaseFirst
	}
	return o
}

// Validate checks that every set field holds a known value.
func (o Options) Validate() error {
	if o.Strength > Identical {
		return fmt.Errorf("collate: invalid strength %d", o.Strength)
	}
	if o.Variable > Shifted {
		return fmt.Errorf("collate: invalid variable weighting %d", o.Variable)
	}
	if o.L2Order > Backward {
		return fmt.Errorf("collate: invalid secondary order %d", o.L2Order)
	}
	if o.CaseLevel > On {
		return fmt.Errorf("collate: invalid case level %d", o.CaseLevel)
	}
	if o.CaseFirst > LowerFirst {
		return fmt.Errorf("collate: invalid case first %d", o.CaseFirst)
	}
	return nil
}

func (o Options) String() string {
	return fmt.Sprintf("strength=%s alternate=%s backwards=%s caseLevel=%s caseFirst=%s",
		o.Strength, o.Variable, o.L2Order, o.CaseLevel, o.CaseFirst)
}

// Option configures a Collator.
type Option func(*Options)

// WithStrength sets the comparison strength.
func WithStrength(s Strength) Option {
	return func(o *Options) { o.Strength = s }
}

// WithVariableWeighting sets the variable weighting.
func WithVariableWeighting(v VariableWeighting) Option {
	return func(o *Options) { o.Variable = v }
}

// WithBackwardSecondary compares secondary weights from the end of the string.
func WithBackwardSecondary() Option {
	return func(o *Options) { o.L2Order = Backward }
}

// WithCaseLevel turns the separate case level on or off.
func WithCaseLevel(on bool) Option {
	return func(o *Options) {
		if on {
			o.CaseLevel = On
		} else {
			o.CaseLevel = Off
		}
	}
}

// WithCaseFirst sets the case ordering at the tertiary level.
func WithCaseFirst(c CaseFirst) Option {
	return func(o *Options) { o.CaseFirst = c }
}

// WithOptions applies every set field of opts.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = o.Merge(opts) }
}
