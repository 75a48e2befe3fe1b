package collate

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Lead bytes of the explicit groups of the base table.
const (
	leadIgnorable   = 0x00
	leadSpace       = 0x03
	leadPunct       = 0x04
	leadSymbol      = 0x05
	leadCurrency    = 0x06
	leadDigit       = 0x07
	leadScriptFirst = 0x10
	leadOthers      = 0xDF
)

// coverage lists the ranges that receive explicit base entries.
var coverage = []struct{ lo, hi rune }{
	{0x0000, 0x2FFF},
	{0xFF00, 0xFFEF},
}

// scriptCodes maps Go script names to ISO 15924 codes.
var scriptCodes = map[string]string{
	"Latin":               "Latn",
	"Greek":               "Grek",
	"Cyrillic":            "Cyrl",
	"Armenian":            "Armn",
	"Hebrew":              "Hebr",
	"Arabic":              "Arab",
	"Syriac":              "Syrc",
	"Thaana":              "Thaa",
	"Nko":                 "Nkoo",
	"Samaritan":           "Samr",
	"Mandaic":             "Mand",
	"Devanagari":          "Deva",
	"Bengali":             "Beng",
	"Gurmukhi":            "Guru",
	"Gujarati":            "Gujr",
	"Oriya":               "Orya",
	"Tamil":               "Taml",
	"Telugu":              "Telu",
	"Kannada":             "Knda",
	"Malayalam":           "Mlym",
	"Sinhala":             "Sinh",
	"Thai":                "Thai",
	"Lao":                 "Laoo",
	"Tibetan":             "Tibt",
	"Myanmar":             "Mymr",
	"Georgian":            "Geor",
	"Hangul":              "Hang",
	"Ethiopic":            "Ethi",
	"Cherokee":            "Cher",
	"Canadian_Aboriginal": "Cans",
	"Ogham":               "Ogam",
	"Runic":               "Runr",
	"Tagalog":             "Tglg",
	"Hanunoo":             "Hano",
	"Buhid":               "Buhd",
	"Tagbanwa":            "Tagb",
	"Khmer":               "Khmr",
	"Mongolian":           "Mong",
	"Limbu":               "Limb",
	"Tai_Le":              "Tale",
	"New_Tai_Lue":         "Talu",
	"Buginese":            "Bugi",
	"Tai_Tham":            "Lana",
	"Balinese":            "Bali",
	"Sundanese":           "Sund",
	"Batak":               "Batk",
	"Lepcha":              "Lepc",
	"Ol_Chiki":            "Olck",
	"Glagolitic":          "Glag",
	"Coptic":              "Copt",
	"Tifinagh":            "Tfng",
	"Katakana":            "Kana",
	"Hiragana":            "Hira",
	"Bopomofo":            "Bopo",
	"Han":                 "Hani",
	"Braille":             "Brai",
	"Vai":                 "Vaii",
	"Yi":                  "Yiii",
}

// leadGroup is a reorderable group of the base table.
type leadGroup struct {
	code    string // reorder code
	name    string // long name, accepted as an alias
	leads   []byte
	special bool // space, punct, symbol, currency, digit
}

// layout is the group structure of the base table.
type layout struct {
	groups   []leadGroup
	byLead   map[byte]int
	scriptOf map[rune]byte // letter -> script lead byte
}

var (
	layoutOnce sync.Once
	baseLayout *layout
)

func getLayout() *layout {
	layoutOnce.Do(func() { baseLayout = buildLayout() })
	return baseLayout
}

type scriptSpan struct {
	name  string
	first rune
	table *unicode.RangeTable
}

func buildLayout() *layout {
	l := &layout{
		byLead:   make(map[byte]int),
		scriptOf: make(map[rune]byte),
	}
	l.add(leadGroup{code: "space", leads: []byte{leadSpace}, special: true})
	l.add(leadGroup{code: "punct", leads: []byte{leadPunct}, special: true})
	l.add(leadGroup{code: "symbol", leads: []byte{leadSymbol}, special: true})
	l.add(leadGroup{code: "currency", leads: []byte{leadCurrency}, special: true})
	l.add(leadGroup{code: "digit", leads: []byte{leadDigit}, special: true})

	// Scripts with letters inside coverage, in order of first letter.
	var spans []scriptSpan
	for name, table := range unicode.Scripts {
		if name == "Common" || name == "Inherited" || name == "Han" {
			continue
		}
		if first, ok := firstCoveredLetter(table); ok {
			spans = append(spans, scriptSpan{name: name, first: first, table: table})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].first < spans[j].first })

	lead := byte(leadScriptFirst)
	for _, s := range spans {
		if lead >= leadOthers {
			break
		}
		code := scriptCodes[s.name]
		if code == "" {
			code = s.name
		}
		l.add(leadGroup{code: code, name: s.name, leads: []byte{lead}})
		for _, lo := range coverage {
			forEachInTable(s.table, lo.lo, lo.hi, func(r rune) {
				l.scriptOf[r] = lead
			})
		}
		lead++
	}

	l.add(leadGroup{code: "Hani", name: "Han", leads: []byte{leadHanCore, leadHanExt}})
	others := []byte{leadOthers}
	for b := byte(leadPlaneFirst); b <= leadPlaneLast; b++ {
		others = append(others, b)
	}
	l.add(leadGroup{code: "Zzzz", name: "others", leads: others})
	return l
}

func (l *layout) add(g leadGroup) {
	l.groups = append(l.groups, g)
	for _, b := range g.leads {
		l.byLead[b] = len(l.groups) - 1
	}
}

// group returns the group a reorder code names.
func (l *layout) group(code string) (int, bool) {
	for i, g := range l.groups {
		if strings.EqualFold(g.code, code) || (g.name != "" && strings.EqualFold(g.name, code)) {
			return i, true
		}
	}
	return 0, false
}

// groupName returns the reorder code of the group owning a base lead byte.
func (l *layout) groupName(lead byte) string {
	if lead == leadIgnorable {
		return "ignorable"
	}
	if i, ok := l.byLead[lead]; ok {
		return l.groups[i].code
	}
	return ""
}

func (l *layout) isBaseLead(b byte) bool {
	_, ok := l.byLead[b]
	return ok || b == leadIgnorable
}

func firstCoveredLetter(table *unicode.RangeTable) (rune, bool) {
	first := rune(-1)
	for _, c := range coverage {
		forEachInTable(table, c.lo, c.hi, func(r rune) {
			if first < 0 && unicode.IsLetter(r) {
				first = r
			}
		})
		if first >= 0 {
			return first, true
		}
	}
	return 0, false
}

// forEachInTable calls fn for every code point of table within [lo, hi].
func forEachInTable(table *unicode.RangeTable, lo, hi rune, fn func(rune)) {
	for _, r16 := range table.R16 {
		forEachInRange(rune(r16.Lo), rune(r16.Hi), rune(r16.Stride), lo, hi, fn)
	}
	for _, r32 := range table.R32 {
		forEachInRange(rune(r32.Lo), rune(r32.Hi), rune(r32.Stride), lo, hi, fn)
	}
}

func forEachInRange(from, to, stride, lo, hi rune, fn func(rune)) {
	if to < lo || from > hi {
		return
	}
	for r := from; r <= to && r <= hi; r += stride {
		if r >= lo {
			fn(r)
		}
	}
}
