// Package collate implements Unicode collation: language-sensitive string
// ordering with tailoring rules.
//
// A Table maps code point sequences to collation elements. The root table
// (DefaultTable) is derived from the Unicode tables; tailored tables are
// produced by Compile from CLDR-style rule text. A Collator combines a table
// with options and produces sort keys or compares sequences directly.
//
// # Collation Elements
//
// Every element carries four weights:
//   - Primary: base letter identity; the high byte is the lead byte of the
//     element's reorder group
//   - Secondary: accents
//   - Tertiary: case and variant forms; the two low bits hold the case
//   - Quaternary: only set by <<<< relations
//
// Spaces and punctuation are variable and can be shifted to the
// quaternary level.
//
// # Rules
//
//	&n << ñ <<< Ñ       # ñ is a secondary variant of n
//	&c < ch <<< Ch      # ch sorts as a letter after c
//	&[before 1] a < å   # å sorts right before a
//	&a <* bcd           # b, c and d each after the previous one
//	[caseFirst upper]
//	[reorder Grek Latn]
//
// Relations are < (primary), << (secondary), <<< (tertiary), <<<<
// (quaternary) and = (identical). x|y tailors y in the context of a
// preceding x; y/z appends the elements of z.
//
// # Keys and Comparison
//
// Collator.Key and Collator.Compare agree: for any two sequences,
// bytes.Compare of their keys equals Compare of the sequences.
//
//	c := collate.New(nil, collate.WithStrength(collate.Secondary))
//	c.CompareString("resume", "Resume") // 0
//
// Tables, Collators and their methods are safe for concurrent use.
// Builders are not.
package collate
