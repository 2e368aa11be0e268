package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BondOrder is the multiplicity of a bond: single, double or triple.
type BondOrder int

// Supported bond orders.
const (
	BondSingle BondOrder = 1
	BondDouble BondOrder = 2
	BondTriple BondOrder = 3
)

// Stereo describes the stereochemical depiction of a bond.
type Stereo string

// Possible stereo values. The empty value is treated as StereoNone.
const (
	StereoNone  Stereo = "none"
	StereoWedge Stereo = "wedge"
	StereoDash  Stereo = "dash"
)

// Atom is a single atom in a structure. X and Y are layout hints for the
// renderer and carry no chemical meaning.
type Atom struct {
	ID      string   `json:"id"`
	Element string   `json:"element"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
}

// Bond connects two atoms of the same structure.
type Bond struct {
	Source string    `json:"source"`
	Target string    `json:"target"`
	Order  BondOrder `json:"order"`
	Stereo Stereo    `json:"stereo,omitempty"`
}

// ResonanceStructure is an alternative bond arrangement over the atom set of
// its owning Structure.
type ResonanceStructure struct {
	Description string `json:"description"`
	Bonds       []Bond `json:"bonds"`
}

// Symmetry holds the point group annotation of a structure.
type Symmetry struct {
	PointGroup string   `json:"pointGroup"`
	Elements   []string `json:"elements"`
}

// Structure is a molecular graph. Values that passed NewStructure are
// treated as immutable: every change produces a new Structure, so a value
// held by the archive or a caller stays valid.
type Structure struct {
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Atoms               []Atom               `json:"atoms"`
	Bonds               []Bond               `json:"bonds"`
	ResonanceStructures []ResonanceStructure `json:"resonanceStructures,omitempty"`
	Symmetry            *Symmetry            `json:"symmetry,omitempty"`
}

// Reasons reported by MalformedStructureError.
const (
	ReasonEmptyAtomID     = "empty_atom_id"
	ReasonDuplicateAtomID = "duplicate_atom_id"
	ReasonUnknownAtom     = "unknown_atom"
	ReasonSelfLoop        = "self_loop"
	ReasonDuplicateBond   = "duplicate_bond"
	ReasonInvalidOrder    = "invalid_bond_order"
	ReasonInvalidStereo   = "invalid_stereo"
)

// MalformedStructureError describes the first graph invariant a structure
// violated. It unwraps to ErrMalformedStructure.
type MalformedStructureError struct {
	Reason string
	Detail string
}

// Error implements the error interface.
func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedStructure, e.Reason, e.Detail)
}

// Unwrap returns ErrMalformedStructure to support errors.Is.
func (e *MalformedStructureError) Unwrap() error {
	return ErrMalformedStructure
}

func malformed(reason, format string, args ...any) error {
	return &MalformedStructureError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// NewStructure is the validation gate between untrusted oracle output and
// application state. It checks graph well-formedness only; chemical
// plausibility such as valence is left to the oracle. On success it returns
// an independent deep copy of s.
func NewStructure(s Structure) (Structure, error) {
	if err := s.Validate(); err != nil {
		return Structure{}, err
	}
	return s.Clone(), nil
}

// Validate checks the structural invariants of the graph: unique non-empty
// atom ids, bonds referencing existing atoms, no self-loops, at most one bond
// per unordered atom pair, and bond orders in {1,2,3}. Resonance structures
// are held to the same bond rules over the parent atom set.
func (s Structure) Validate() error {
	atomIDs := make(map[string]struct{}, len(s.Atoms))
	for i, a := range s.Atoms {
		if a.ID == "" {
			return malformed(ReasonEmptyAtomID, "atom %d has an empty id", i)
		}
		if _, seen := atomIDs[a.ID]; seen {
			return malformed(ReasonDuplicateAtomID, "atom id %q appears more than once", a.ID)
		}
		atomIDs[a.ID] = struct{}{}
	}

	if err := validateBonds(atomIDs, s.Bonds, "bond"); err != nil {
		return err
	}

	for i, rs := range s.ResonanceStructures {
		if err := validateBonds(atomIDs, rs.Bonds, "resonance "+strconv.Itoa(i)+" bond"); err != nil {
			return err
		}
	}

	return nil
}

func validateBonds(atomIDs map[string]struct{}, bonds []Bond, label string) error {
	pairs := make(map[[2]string]struct{}, len(bonds))
	for i, b := range bonds {
		if _, ok := atomIDs[b.Source]; !ok {
			return malformed(ReasonUnknownAtom, "%s %d references unknown atom %q", label, i, b.Source)
		}
		if _, ok := atomIDs[b.Target]; !ok {
			return malformed(ReasonUnknownAtom, "%s %d references unknown atom %q", label, i, b.Target)
		}
		if b.Source == b.Target {
			return malformed(ReasonSelfLoop, "%s %d connects atom %q to itself", label, i, b.Source)
		}
		if b.Order < BondSingle || b.Order > BondTriple {
			return malformed(ReasonInvalidOrder, "%s %d has order %d", label, i, b.Order)
		}
		switch b.Stereo {
		case "", StereoNone, StereoWedge, StereoDash:
		default:
			return malformed(ReasonInvalidStereo, "%s %d has stereo %q", label, i, b.Stereo)
		}

		key := pairKey(b.Source, b.Target)
		if _, dup := pairs[key]; dup {
			return malformed(ReasonDuplicateBond, "%s %d duplicates the %s-%s bond", label, i, key[0], key[1])
		}
		pairs[key] = struct{}{}
	}
	return nil
}

// pairKey normalizes an unordered atom pair.
func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Clone returns a deep copy of the structure sharing no slices or pointers
// with the receiver.
func (s Structure) Clone() Structure {
	out := Structure{
		Name:        s.Name,
		Description: s.Description,
	}

	if s.Atoms != nil {
		out.Atoms = make([]Atom, len(s.Atoms))
		for i, a := range s.Atoms {
			out.Atoms[i] = Atom{ID: a.ID, Element: a.Element, X: cloneFloat(a.X), Y: cloneFloat(a.Y)}
		}
	}

	out.Bonds = cloneBonds(s.Bonds)

	if s.ResonanceStructures != nil {
		out.ResonanceStructures = make([]ResonanceStructure, len(s.ResonanceStructures))
		for i, rs := range s.ResonanceStructures {
			out.ResonanceStructures[i] = ResonanceStructure{
				Description: rs.Description,
				Bonds:       cloneBonds(rs.Bonds),
			}
		}
	}

	if s.Symmetry != nil {
		sym := Symmetry{PointGroup: s.Symmetry.PointGroup}
		if s.Symmetry.Elements != nil {
			sym.Elements = append([]string(nil), s.Symmetry.Elements...)
		}
		out.Symmetry = &sym
	}

	return out
}

func cloneBonds(bonds []Bond) []Bond {
	if bonds == nil {
		return nil
	}
	return append([]Bond(nil), bonds...)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// ElementCounts returns the number of atoms per element symbol.
func (s Structure) ElementCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range s.Atoms {
		counts[a.Element]++
	}
	return counts
}

// Formula renders the element counts in Hill order: carbon first, hydrogen
// second, then the remaining elements alphabetically. Without carbon every
// element is alphabetical.
func (s Structure) Formula() string {
	counts := s.ElementCounts()
	if len(counts) == 0 {
		return ""
	}

	elements := make([]string, 0, len(counts))
	for el := range counts {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	var order []string
	if _, hasCarbon := counts["C"]; hasCarbon {
		order = append(order, "C")
		if _, hasH := counts["H"]; hasH {
			order = append(order, "H")
		}
		for _, el := range elements {
			if el != "C" && el != "H" {
				order = append(order, el)
			}
		}
	} else {
		order = elements
	}

	var b strings.Builder
	for _, el := range order {
		b.WriteString(el)
		if n := counts[el]; n > 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

// ArchiveItem is a named snapshot of a structure owned by the archive.
type ArchiveItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp int64     `json:"timestamp"`
	Data      Structure `json:"data"`
}
