package chunk

import "github.com/josharian/intern"

// Str is the heap representation of an interned Lox string. Two Values
// compare equal under TypeString iff they hold the same *Str pointer
// (spec §3, "identity for strings — safe because of interning").
type Str struct {
	Chars string
}

func (s *Str) objectTag() {}
func (s *Str) String() string { return s.Chars }

// Interner is a content-addressed table from byte sequence to string
// handle. Insertion is idempotent: interning the same bytes twice returns
// the same *Str both times. The interner outlives every Value it has
// issued for the duration of a compile+run (spec §4.4).
//
// The table itself is keyed on the deduplicated Go string returned by
// github.com/josharian/intern.String, so repeated identical lexemes never
// even grow the Go string's own backing array before they reach the Lox
// interner — a small but free optimization on top of the Value-identity
// guarantee the interpreter actually depends on.
type Interner struct {
	table map[string]*Str
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]*Str)}
}

// Intern returns the canonical *Str for s, creating one on first sight.
func (in *Interner) Intern(s string) *Str {
	key := intern.String(s)
	if existing, ok := in.table[key]; ok {
		return existing
	}
	str := &Str{Chars: key}
	in.table[key] = str
	return str
}

// Len reports how many distinct strings have been interned so far. Used
// by tests asserting that concatenation reuses existing handles rather
// than growing the table.
func (in *Interner) Len() int {
	return len(in.table)
}
