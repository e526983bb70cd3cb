package cfg

import "github.com/armon/go-radix"

// Interner canonicalizes "func/block" keys to Location values so callers
// that build locations from strings (the SARIF ingest layer, a CLI
// loader) share one instance per distinct block rather than minting
// equal-but-distinct Location values on every call. This mirrors the
// radix-backed prefix trees gps builds over project import paths to
// cheaply test "is this path under an already-known project root" - here
// the trie additionally supports prefix lookups of every block belonging
// to a function. The command's graph loader does not use an Interner; it
// builds Location values directly.
//
// Interning is explicitly an input-layer concern (see the design notes):
// the Coordinator and its sub-searchers never construct or canonicalize
// Locations themselves, they only compare the ones handed to them.
type Interner struct {
	t *radix.Tree
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{t: radix.New()}
}

func key(fn, block string) string {
	return fn + "/" + block
}

// Intern returns the canonical Location for (fn, block), inserting it on
// first use.
func (in *Interner) Intern(fn, block string) Location {
	k := key(fn, block)
	if v, ok := in.t.Get(k); ok {
		return v.(Location)
	}
	loc := Location{Func: fn, Block: block}
	in.t.Insert(k, loc)
	return loc
}

// BlocksOfFunc returns every Location previously interned for fn, found
// via a radix prefix walk over "fn/".
func (in *Interner) BlocksOfFunc(fn string) []Location {
	var out []Location
	in.t.WalkPrefix(fn+"/", func(_ string, v interface{}) bool {
		out = append(out, v.(Location))
		return false
	})
	return out
}

// Len returns the number of distinct locations interned so far.
func (in *Interner) Len() int {
	return in.t.Len()
}
