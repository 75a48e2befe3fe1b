package collate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	onError        DiagnosticHandler
	onWarning      DiagnosticHandler
	log            logrus.FieldLogger
	locale         language.Tag
	filename       string
	retainCaseBits *bool
}

// WithErrorHandler receives the diagnostic of the error that stops
// compilation.
func WithErrorHandler(h DiagnosticHandler) CompileOption {
	return func(c *compileConfig) { c.onError = h }
}

// WithWarningHandler receives warnings. Warnings never stop compilation.
func WithWarningHandler(h DiagnosticHandler) CompileOption {
	return func(c *compileConfig) { c.onWarning = h }
}

// WithLogger logs every applied edit at debug level and weight
// renumbering at info level.
func WithLogger(l logrus.FieldLogger) CompileOption {
	return func(c *compileConfig) { c.log = l }
}

// WithLocale records the locale the rules belong to as the table's
// provenance.
func WithLocale(tag language.Tag) CompileOption {
	return func(c *compileConfig) { c.locale = tag }
}

// WithFilename names the rule source in diagnostics.
func WithFilename(name string) CompileOption {
	return func(c *compileConfig) { c.filename = name }
}

// WithRetainCaseBits overrides whether the compiled table keeps case bits.
func WithRetainCaseBits(v bool) CompileOption {
	return func(c *compileConfig) { c.retainCaseBits = &v }
}

// Compile applies tailoring rules to base and returns the tailored table.
// A nil base selects DefaultTable. base is not modified.
//
// Rules are applied in source order. The first error stops compilation;
// it is reported to the error handler and returned. Warnings go to the
// warning handler.
func Compile(rules string, base *Table, opts ...CompileOption) (*Table, error) {
	cfg := &compileConfig{locale: language.Und}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		cfg.log = discardLogger()
	}
	if base == nil {
		base = DefaultTable()
	}

	c := newCompiler(rules, base, cfg)
	res, err := ParseRules(rules)
	for _, w := range res.Warnings {
		c.report(SeverityWarning, w)
	}
	if err != nil {
		c.report(SeverityError, err)
		return nil, err
	}
	for _, st := range res.Statements {
		switch st := st.(type) {
		case *Setting:
			err = c.applySetting(st)
		case *Rule:
			err = c.applyRule(st)
		}
		if err != nil {
			c.report(SeverityError, err)
			return nil, err
		}
	}

	if err := c.b.SetSettings(base.Settings().Merge(c.settings)); err != nil {
		return nil, err
	}
	if cfg.retainCaseBits != nil {
		c.b.SetRetainCaseBits(*cfg.retainCaseBits)
	}
	if cfg.locale != language.Und {
		c.b.SetProvenance(cfg.locale.String())
	} else {
		c.b.SetProvenance(base.Provenance() + "+tailored")
	}
	return c.b.Build()
}

type compiler struct {
	cfg   *compileConfig
	src   string
	b     *Builder
	alloc *Allocator

	settings Options
	tailored map[string]Position // key -> position of the relation that placed it

	// The current anchor and the truncated anchor of the relation being
	// applied. Both are rewritten when the allocator renumbers.
	pending    []Elem
	work       []Elem
	anchorName string
}

func newCompiler(src string, base *Table, cfg *compileConfig) *compiler {
	c := &compiler{
		cfg:      cfg,
		src:      src,
		b:        base.Builder(),
		tailored: make(map[string]Position),
	}
	c.alloc = NewAllocator(c.b, cfg.log)
	c.alloc.OnRemap = func(remap func(Elem) Elem) {
		for i := range c.pending {
			c.pending[i] = remap(c.pending[i])
		}
		for i := range c.work {
			c.work[i] = remap(c.work[i])
		}
	}
	return c
}

func (c *compiler) report(sev Severity, err error) {
	h := c.cfg.onWarning
	if sev == SeverityError {
		h = c.cfg.onError
	}
	pos, _ := errorPos(err)
	entry := c.cfg.log.WithFields(logrus.Fields{"pos": pos.String()})
	if sev == SeverityError {
		entry.WithError(err).Debug("rule compilation failed")
	} else {
		entry.Warn(err.Error())
	}
	if h == nil {
		return
	}
	h(Diagnostic{
		Severity: sev,
		Err:      err,
		Pos:      pos,
		Filename: c.cfg.filename,
		Line:     sourceLine(c.src, pos.Line),
	})
}

// ============================================================
// Settings
// ============================================================

func (c *compiler) applySetting(st *Setting) error {
	arg := ""
	if len(st.Args) > 0 {
		arg = st.Args[0]
	}
	switch st.Name {
	case "strength":
		c.settings.Strength = map[string]Strength{
			"1": Primary, "2": Secondary, "3": Tertiary, "4": Quaternary, "I": Identical,
		}[arg]
	case "alternate":
		if arg == "shifted" {
			c.settings.Variable = Shifted
		} else {
			c.settings.Variable = NonIgnorable
		}
	case "backwards":
		c.settings.L2Order = Backward
	case "caseLevel":
		c.settings.CaseLevel = switchOf(arg)
	case "caseFirst":
		c.settings.CaseFirst = map[string]CaseFirst{
			"upper": UpperFirst, "lower": LowerFirst, "off": CaseFirstOff,
		}[arg]
	case "normalization":
		c.b.SetNormalization(arg == "on")
	case "suppressContractions":
		c.suppressContractions(st.Set)
	case "reorder":
		if err := c.b.leads.Reorder(st.Args...); err != nil {
			return &RuleSyntaxError{Msg: strings.TrimPrefix(err.Error(), "collate: "), Pos: st.Pos}
		}
	}
	return nil
}

func switchOf(s string) Switch {
	if s == "on" {
		return On
	}
	return Off
}

// suppressContractions removes every multi-code-point key starting with a
// code point of set.
func (c *compiler) suppressContractions(set []rune) {
	in := make(map[rune]bool, len(set))
	for _, r := range set {
		in[r] = true
	}
	var doomed [][]rune
	c.b.each(func(key []rune, _ []Elem) {
		if len(key) > 1 && in[key[0]] {
			doomed = append(doomed, append([]rune(nil), key...))
		}
	})
	for _, key := range doomed {
		c.b.Remove(key)
	}
}

// ============================================================
// Rules
// ============================================================

func (c *compiler) applyRule(r *Rule) error {
	var err error
	if r.Logical != LogicalNone {
		c.anchorName = r.Logical.String()
		c.pending, err = c.resolveLogical(r.Logical, r.Pos)
	} else {
		c.anchorName = string(r.Anchor)
		c.pending, err = c.resolveKey(r.Anchor, r.Pos)
	}
	if err != nil {
		return err
	}

	chain := make(map[string]Position)
	for i, rel := range r.Relations {
		var before Strength
		if i == 0 {
			before = r.Before
		}
		if err := c.applyRelation(rel, before, chain); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) resolveKey(anchor []rune, pos Position) ([]Elem, error) {
	for _, r := range anchor {
		if r >= 0xFFFD && r <= 0xFFFF {
			return nil, &UnresolvedAnchorError{
				Anchor: string(anchor),
				Reason: fmt.Sprintf("%U has no tailorable position", r),
				Pos:    pos,
			}
		}
	}
	return c.elems(nfd(anchor)), nil
}

// elems returns a copy of the element stream of key in the working table.
func (c *compiler) elems(key []rune) []Elem {
	buf := append([]rune(nil), key...)
	var out []Elem
	for pos := 0; pos < len(buf); {
		e, n := c.b.Lookup(buf, pos)
		out = append(out, e...)
		pos += n
	}
	return cloneElems(out)
}

func nfd(key []rune) []rune {
	return []rune(norm.NFD.String(string(key)))
}

// resolveLogical finds the element a logical position names by scanning
// the working table.
func (c *compiler) resolveLogical(lp LogicalPosition, pos Position) ([]Elem, error) {
	unresolved := func(reason string) error {
		return &UnresolvedAnchorError{Anchor: lp.String(), Reason: reason, Pos: pos}
	}
	var match func(Elem) bool
	switch lp {
	case FirstTertiaryIgnorable, LastTertiaryIgnorable:
		return []Elem{{}}, nil
	case FirstSecondaryIgnorable, LastSecondaryIgnorable:
		match = func(e Elem) bool { return e.Primary == 0 && e.Secondary == 0 && e.Tertiary != 0 }
	case FirstPrimaryIgnorable, LastPrimaryIgnorable:
		match = func(e Elem) bool { return e.Primary == 0 && e.Secondary != 0 }
	case FirstVariable, LastVariable:
		match = func(e Elem) bool { return e.Variable }
	case FirstRegular, LastRegular:
		match = func(e Elem) bool {
			_, implicit := implicitShift(e.LeadByte())
			return e.Primary != 0 && !e.Variable && !implicit
		}
	case FirstImplicit:
		return []Elem{c.b.implicit.Implicit(0x4E00)}, nil
	default:
		return nil, unresolved("position is not supported")
	}

	last := lp == LastSecondaryIgnorable || lp == LastPrimaryIgnorable ||
		lp == LastVariable || lp == LastRegular
	var (
		best  Elem
		found bool
	)
	c.b.each(func(_ []rune, elems []Elem) {
		for _, e := range elems {
			if !match(e) {
				continue
			}
			if !found {
				best, found = e, true
				continue
			}
			cmp := c.compareElem(e, best)
			if (last && cmp > 0) || (!last && cmp < 0) {
				best = e
			}
		}
	})
	if !found {
		return nil, unresolved("no element in the table has this position")
	}
	return []Elem{best}, nil
}

func (c *compiler) compareElem(a, b Elem) int {
	pa, pb := c.b.leads.Primary(a.Primary), c.b.leads.Primary(b.Primary)
	switch {
	case pa != pb:
		return cmpUint(pa, pb)
	case a.Secondary != b.Secondary:
		return cmpUint(uint32(a.Secondary), uint32(b.Secondary))
	case a.TertiaryRank() != b.TertiaryRank():
		return cmpUint(uint32(a.TertiaryRank()), uint32(b.TertiaryRank()))
	}
	return cmpUint(uint32(a.Quaternary), uint32(b.Quaternary))
}

func cmpUint(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func levelWeight(e Elem, level Strength) uint32 {
	switch level {
	case Primary:
		return e.Primary
	case Secondary:
		return uint32(e.Secondary)
	case Tertiary:
		return uint32(e.TertiaryRank())
	case Quaternary:
		return uint32(e.Quaternary)
	}
	return 0
}

// truncate keeps the anchor elements up to the last one that carries a
// weight at level or coarser.
func truncate(elems []Elem, level Strength) []Elem {
	for i := len(elems) - 1; i >= 0; i-- {
		if elems[i].Level() <= level {
			return cloneElems(elems[:i+1])
		}
	}
	return []Elem{{}}
}

func (c *compiler) applyRelation(rel Relation, before Strength, chain map[string]Position) error {
	key := nfd(append(append([]rune(nil), rel.Prefix...), rel.Key...))
	ks := string(key)
	if prev, ok := chain[ks]; ok {
		return &ConflictingTailoringError{Key: ks, Pos: rel.Pos, Prev: prev}
	}
	if prev, ok := c.tailored[ks]; ok {
		c.report(SeverityWarning, &ConflictingTailoringError{Key: ks, Pos: rel.Pos, Prev: prev})
	}
	chain[ks] = rel.Pos
	c.tailored[ks] = rel.Pos

	var elems []Elem
	if rel.Strength == Identical {
		elems = cloneElems(c.pending)
	} else {
		var err error
		if elems, err = c.place(rel, before); err != nil {
			return err
		}
	}

	cs := caseOf(c.elems(nfd(rel.Key)))
	for i := range elems {
		if elems[i].Tertiary != 0 {
			elems[i] = elems[i].withCase(cs)
		}
	}
	anchor := cloneElems(elems)

	if len(rel.Extension) > 0 {
		elems = append(elems, c.elems(nfd(rel.Extension))...)
	}
	if len(rel.Prefix) > 0 {
		elems = append(c.elems(nfd(rel.Prefix)), elems...)
	}

	if err := c.insert(key, elems); err != nil {
		return err
	}
	c.cfg.log.WithFields(logrus.Fields{
		"anchor": c.anchorName,
		"key":    ks,
		"level":  rel.Strength.String(),
		"before": before != 0,
		"elems":  FormatElems(elems),
	}).Debug("applied edit")

	c.pending = anchor
	c.anchorName = string(rel.Key)
	return nil
}

// place computes the elements of a relation from the current anchor.
func (c *compiler) place(rel Relation, before Strength) ([]Elem, error) {
	level := rel.Strength
	c.work = truncate(c.pending, level)
	defer func() { c.work = nil }()

	last := c.work[len(c.work)-1]
	w := levelWeight(last, level)
	var low, high uint32
	if before != 0 {
		if w == 0 {
			return nil, &UnresolvedAnchorError{
				Anchor: c.anchorName,
				Reason: fmt.Sprintf("nothing sorts before a %s-ignorable anchor", level),
				Pos:    rel.Pos,
			}
		}
		low, high = c.alloc.Prev(level, w), w
	} else {
		low, high = w, c.alloc.Next(level, w)
	}
	nw, err := c.alloc.Allocate(level, low, high)
	if err != nil {
		var exh *WeightSpaceExhaustedError
		if errors.As(err, &exh) {
			exh.Pos = rel.Pos
		}
		return nil, err
	}

	// The allocator may have renumbered c.work; reload the last element.
	last = c.work[len(c.work)-1]
	var e Elem
	switch level {
	case Primary:
		e = Elem{Primary: nw, Secondary: SecondaryCommon, Tertiary: TertiaryCommon, Variable: last.Variable}
	case Secondary:
		e = Elem{Primary: last.Primary, Secondary: uint16(nw), Tertiary: TertiaryCommon, Variable: last.Variable}
	case Tertiary:
		e = last.withRank(uint16(nw))
		e.Quaternary = 0
	case Quaternary:
		e = last
		e.Quaternary = uint16(nw)
	}
	if e.Variable && e.Primary == 0 {
		e.Variable = false
	}
	out := cloneElems(c.work)
	out[len(out)-1] = e
	return out, nil
}

// caseOf derives case bits from the primary elements a key currently maps
// to. Marks are uncased.
func caseOf(elems []Elem) uint16 {
	var upper, lower bool
	for _, e := range elems {
		if e.Primary == 0 || e.Tertiary == 0 {
			continue
		}
		switch e.Case() {
		case CaseUpper:
			upper = true
		case CaseMixed:
			upper, lower = true, true
		default:
			lower = true
		}
	}
	switch {
	case upper && lower:
		return CaseMixed
	case upper:
		return CaseUpper
	}
	return CaseLower
}

// insert stores key and, when the key composes to a single code point,
// that code point as well.
func (c *compiler) insert(key []rune, elems []Elem) error {
	if err := c.b.Insert(key, elems); err != nil {
		return err
	}
	for _, e := range elems {
		c.alloc.ObserveElem(e)
	}
	if nfc := norm.NFC.String(string(key)); nfc != string(key) && utf8.RuneCountInString(nfc) == 1 {
		return c.b.Insert([]rune(nfc), elems)
	}
	return nil
}
