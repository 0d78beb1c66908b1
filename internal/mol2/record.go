// internal/mol2/record.go
package mol2

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// AtomSection starts the atom block.
const AtomSection = "@<TRIPOS>ATOM"

// Atom is one row of the atom block.
type Atom struct {
	ID        int
	Name      string
	X, Y, Z   float64
	Type      string
	SubstID   int
	SubstName string
	Charge    float64
}

// Record is a parsed structure record. Atoms keep file order.
type Record struct {
	ID     string
	Header []string
	Atoms  []Atom
	Raw    []byte
}

// Column positions of AtomSchema.
const (
	ColAtomID = iota
	ColAtomName
	ColX
	ColY
	ColZ
	ColAtomType
	ColSubstID
	ColSubstName
	ColCharge
)

// AtomSchema names the atom columns for selections.
var AtomSchema = selection.Schema{
	{Name: "atom_id", Kind: selection.KindNumber},
	{Name: "atom_name", Kind: selection.KindString},
	{Name: "x", Kind: selection.KindNumber},
	{Name: "y", Kind: selection.KindNumber},
	{Name: "z", Kind: selection.KindNumber},
	{Name: "atom_type", Kind: selection.KindString},
	{Name: "subst_id", Kind: selection.KindNumber},
	{Name: "subst_name", Kind: selection.KindString},
	{Name: "charge", Kind: selection.KindNumber},
}

// Len implements selection.Rows.
func (r *Record) Len() int { return len(r.Atoms) }

// Float implements selection.Rows.
func (r *Record) Float(col, i int) float64 {
	a := &r.Atoms[i]
	switch col {
	case ColAtomID:
		return float64(a.ID)
	case ColX:
		return a.X
	case ColY:
		return a.Y
	case ColZ:
		return a.Z
	case ColSubstID:
		return float64(a.SubstID)
	case ColCharge:
		return a.Charge
	}
	return math.NaN()
}

// Text implements selection.Rows.
func (r *Record) Text(col, i int) string {
	a := &r.Atoms[i]
	switch col {
	case ColAtomName:
		return a.Name
	case ColAtomType:
		return a.Type
	case ColSubstName:
		return a.SubstName
	}
	return strconv.FormatFloat(r.Float(col, i), 'g', -1, 64)
}

// Subset returns the atoms selected by mask, in order.
func (r *Record) Subset(mask []bool) []Atom {
	var out []Atom
	for i, ok := range mask {
		if ok {
			out = append(out, r.Atoms[i])
		}
	}
	return out
}

// Parse reads the atom block of raw. Columns are whitespace separated in
// fixed order; the first six are required, subst_id, subst_name and charge
// default to 0, "" and 0, and trailing status columns are ignored.
func Parse(raw RawRecord) (*Record, error) {
	rec := &Record{ID: raw.ID, Raw: raw.Text}
	inAtoms := false
	seenAtoms := false
	for _, ln := range bytes.Split(raw.Text, []byte{'\n'}) {
		line := strings.TrimRight(string(ln), "\r")
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@<TRIPOS>") {
			if inAtoms {
				break
			}
			if strings.HasPrefix(trimmed, AtomSection) {
				inAtoms = true
				seenAtoms = true
				continue
			}
		}
		if !inAtoms {
			if !seenAtoms {
				rec.Header = append(rec.Header, line)
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		a, err := parseAtom(trimmed)
		if err != nil {
			return nil, apperr.Parse(raw.ID, trimmed, "%s", err.Error())
		}
		rec.Atoms = append(rec.Atoms, a)
	}
	if n := len(rec.Header); n > 0 && rec.Header[n-1] == "" && !seenAtoms {
		rec.Header = rec.Header[:n-1]
	}
	return rec, nil
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

func parseAtom(line string) (Atom, error) {
	f := strings.Fields(line)
	if len(f) < 6 {
		return Atom{}, fieldError("atom line has " + strconv.Itoa(len(f)) + " columns, need at least 6")
	}
	var (
		a   Atom
		err error
	)
	if a.ID, err = strconv.Atoi(f[0]); err != nil {
		return Atom{}, fieldError("non-numeric atom_id " + strconv.Quote(f[0]))
	}
	a.Name = f[1]
	for i, dst := range []*float64{&a.X, &a.Y, &a.Z} {
		if *dst, err = strconv.ParseFloat(f[2+i], 64); err != nil {
			return Atom{}, fieldError("non-numeric " + AtomSchema[ColX+i].Name + " coordinate " + strconv.Quote(f[2+i]))
		}
	}
	a.Type = f[5]
	if len(f) > 6 {
		if a.SubstID, err = strconv.Atoi(f[6]); err != nil {
			return Atom{}, fieldError("non-numeric subst_id " + strconv.Quote(f[6]))
		}
	}
	if len(f) > 7 {
		a.SubstName = f[7]
	}
	if len(f) > 8 {
		if a.Charge, err = strconv.ParseFloat(f[8], 64); err != nil {
			return Atom{}, fieldError("non-numeric charge " + strconv.Quote(f[8]))
		}
	}
	return a, nil
}
