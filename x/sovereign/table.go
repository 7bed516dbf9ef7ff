package sovereign

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Entry is a single translation. Index is set only for derived accounts.
type Entry struct {
	ParaID ParaID
	Index  uint16
	From   ferry.Address
	To     ferry.Address
}

// TextEntry is the textual form of an Entry, as embedded in this package
// or read from a JSON file. Accounts use the ss58 encoding.
type TextEntry struct {
	ParaID ParaID `json:"para_id"`
	Index  uint16 `json:"index,omitempty"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Table is an immutable translation table sorted by the origin account.
type Table struct {
	entries []Entry
}

// NewTable decodes and sorts given entries. Every account must be a valid
// ss58 string and every origin account may appear only once.
func NewTable(text []TextEntry) (*Table, error) {
	entries := make([]Entry, 0, len(text))
	for i, t := range text {
		_, from, err := SS58Decode(t.From)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d: from", i)
		}
		_, to, err := SS58Decode(t.To)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d: to", i)
		}
		entries = append(entries, Entry{ParaID: t.ParaID, Index: t.Index, From: from, To: to})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].From, entries[j].From) < 0
	})
	for i := 1; i < len(entries); i++ {
		if entries[i-1].From.Equals(entries[i].From) {
			return nil, errors.Wrapf(errors.ErrDuplicate, "account %s", entries[i].From)
		}
	}
	return &Table{entries: entries}, nil
}

// ReadTable loads a table from a JSON list of TextEntry.
func ReadTable(r io.Reader) (*Table, error) {
	var text []TextEntry
	if err := json.NewDecoder(r).Decode(&text); err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return NewTable(text)
}

// Lookup finds the entry for given origin account.
func (t *Table) Lookup(from ferry.Address) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i := sort.Search(len(t.entries), func(i int) bool {
		return bytes.Compare(t.entries[i].From, from) >= 0
	})
	if i < len(t.entries) && t.entries[i].From.Equals(from) {
		return t.entries[i], true
	}
	return Entry{}, false
}

// Entries returns all entries, sorted by the origin account.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

var (
	sovereignTable = mustTable(sovereignEntries)
	derivedTable   = mustTable(derivedEntries)
)

func mustTable(text []TextEntry) *Table {
	t, err := NewTable(text)
	if err != nil {
		panic(err)
	}
	return t
}

// SovereignTable returns the embedded table of sovereign accounts.
func SovereignTable() *Table {
	return sovereignTable
}

// DerivedTable returns the embedded table of derived accounts.
func DerivedTable() *Table {
	return derivedTable
}

// MaybeSovereignTranslate returns the destination account for a known
// sovereign account, or nil.
func MaybeSovereignTranslate(acc ferry.Address) ferry.Address {
	if e, ok := sovereignTable.Lookup(acc); ok {
		return e.To
	}
	return nil
}

// MaybeDerivedTranslate returns the destination account for a known derived
// account, or nil.
func MaybeDerivedTranslate(acc ferry.Address) ferry.Address {
	if e, ok := derivedTable.Lookup(acc); ok {
		return e.To
	}
	return nil
}

// Translator maps origin accounts to destination accounts.
type Translator struct {
	tables []*Table
}

// NewTranslator returns a translator consulting the embedded tables and
// then all extra tables, in order.
func NewTranslator(extra ...*Table) *Translator {
	tables := append([]*Table{sovereignTable, derivedTable}, extra...)
	return &Translator{tables: tables}
}

// Translate returns the destination account of acc. Known accounts are
// looked up in the tables, other sovereign accounts are translated by their
// layout and all remaining accounts are returned unchanged.
func (t *Translator) Translate(acc ferry.Address) ferry.Address {
	for _, tb := range t.tables {
		if e, ok := tb.Lookup(acc); ok {
			return e.To.Clone()
		}
	}
	if to, _, err := TryTranslateSovereign(acc); err == nil {
		return to
	}
	return acc.Clone()
}
