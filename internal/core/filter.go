package core

import (
	"fmt"
	"strings"
	"unicode"
)

// All is the wildcard value of a filter slot.
const All = "all"

const (
	DimProgramPembebanan Dimension = "programPembebanan"
	DimKegiatan          Dimension = "kegiatan"
	DimRincianOutput     Dimension = "rincianOutput"
	DimKomponenOutput    Dimension = "komponenOutput"
	DimSubKomponen       Dimension = "subKomponen"
	DimAkun              Dimension = "akun"
	DimAkunGroup         Dimension = "akunGroup"
	DimAccountGroup      Dimension = "accountGroup"
)

// Dimension is a hierarchy along which items are grouped or filtered.
type Dimension string

// Dimensions lists every supported summary dimension.
func Dimensions() []Dimension {
	return []Dimension{
		DimProgramPembebanan, DimKegiatan, DimRincianOutput, DimKomponenOutput,
		DimSubKomponen, DimAkun, DimAkunGroup, DimAccountGroup,
	}
}

func (d Dimension) IsValid() bool {
	for _, v := range Dimensions() {
		if v == d {
			return true
		}
	}
	return false
}

// ParseDimension validates a dimension name coming from a caller.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.TrimSpace(s))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: unknown dimension %q", ErrValidation, s)
	}
	return d, nil
}

// cascade lists the levels reset when the key level is selected.
var cascade = map[Dimension][]Dimension{
	DimProgramPembebanan: {DimKegiatan, DimRincianOutput, DimKomponenOutput, DimSubKomponen},
	DimKegiatan:          {DimRincianOutput, DimKomponenOutput, DimSubKomponen},
	DimRincianOutput:     {DimKomponenOutput, DimSubKomponen},
	DimKomponenOutput:    {DimSubKomponen},
}

// FilterSelection scopes which items take part in display and aggregation.
// An empty slot behaves like All.
type FilterSelection struct {
	ProgramPembebanan string `json:"programPembebanan"`
	Kegiatan          string `json:"kegiatan"`
	RincianOutput     string `json:"rincianOutput"`
	KomponenOutput    string `json:"komponenOutput"`
	SubKomponen       string `json:"subKomponen"`
	Akun              string `json:"akun"`
}

// NewFilterSelection returns a selection with every slot set to All.
func NewFilterSelection() FilterSelection {
	return FilterSelection{
		ProgramPembebanan: All,
		Kegiatan:          All,
		RincianOutput:     All,
		KomponenOutput:    All,
		SubKomponen:       All,
		Akun:              All,
	}
}

// IsAll reports whether a slot value is the wildcard.
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == All
}

func (f *FilterSelection) slot(level Dimension) *string {
	switch level {
	case DimProgramPembebanan:
		return &f.ProgramPembebanan
	case DimKegiatan:
		return &f.Kegiatan
	case DimRincianOutput:
		return &f.RincianOutput
	case DimKomponenOutput:
		return &f.KomponenOutput
	case DimSubKomponen:
		return &f.SubKomponen
	case DimAkun:
		return &f.Akun
	default:
		return nil
	}
}

// Value returns the slot for level, or All for a level that is not filterable.
func (f FilterSelection) Value(level Dimension) string {
	if p := f.slot(level); p != nil && !IsAll(*p) {
		return *p
	}
	return All
}

// Set selects value at level and resets all descendant levels to All.
// Akun never cascades.
func (f FilterSelection) Set(level Dimension, value string) (FilterSelection, error) {
	p := f.slot(level)
	if p == nil {
		return f, fmt.Errorf("%w: %q is not a filter level", ErrValidation, level)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = All
	}
	*p = value
	for _, child := range cascade[level] {
		*f.slot(child) = All
	}
	return f, nil
}

// Matches reports whether the item lies inside the selection.
func (f FilterSelection) Matches(b BudgetItem) bool {
	for _, level := range []Dimension{
		DimProgramPembebanan, DimKegiatan, DimRincianOutput,
		DimKomponenOutput, DimSubKomponen, DimAkun,
	} {
		want := f.Value(level)
		if want == All {
			continue
		}
		if level.KeyOf(b) != want {
			return false
		}
	}
	return true
}

// akunDigits returns the leading digits of an akun code ("521211 - Belanja
// Bahan" -> "521211").
func akunDigits(akun string) string {
	akun = strings.TrimSpace(akun)
	end := 0
	for end < len(akun) && unicode.IsDigit(rune(akun[end])) {
		end++
	}
	return akun[:end]
}

// AccountGroup is the first digit of the akun code.
func AccountGroup(akun string) string {
	d := akunDigits(akun)
	if len(d) < 1 {
		return ""
	}
	return d[:1]
}

// AkunGroup is the first two digits of the akun code.
func AkunGroup(akun string) string {
	d := akunDigits(akun)
	if len(d) < 2 {
		return ""
	}
	return d[:2]
}
