// This file decodes and validates request input: JSON bodies, filter
// query parameters, item fields and monthly plans.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"anggaran/internal/core"
)

const maxJSONBody = 1 << 20

var validate = validator.New()

// decodeJSON reads a single JSON object into dst and validates its tags.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) *JSONResponseBuilder {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return BadRequestError("Invalid JSON body: " + err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return ValidationError(err)
	}
	return nil
}

// filterParams are the query keys of each filter level, top down.
var filterParams = []struct {
	key   string
	level core.Dimension
}{
	{"program", core.DimProgramPembebanan},
	{"kegiatan", core.DimKegiatan},
	{"rincian", core.DimRincianOutput},
	{"komponen", core.DimKomponenOutput},
	{"sub", core.DimSubKomponen},
	{"akun", core.DimAkun},
}

// ParseFilter builds a selection from query parameters. Levels are applied
// top down so a parent never resets an explicitly given child.
func ParseFilter(q url.Values) core.FilterSelection {
	sel := core.NewFilterSelection()
	for _, p := range filterParams {
		v := sanitizeInput(q.Get(p.key))
		if v == "" {
			continue
		}
		sel, _ = sel.Set(p.level, v)
	}
	return sel
}

// Number accepts a JSON number or a loosely formatted string such as
// "Rp 1.200.000".
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := core.ParseNumber(s)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		n.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	n.Decimal = d
	return nil
}

func (n *Number) ptr() *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := n.Decimal
	return &d
}

// ItemRequest is the body of item create and edit calls. Omitted fields
// are left untouched.
type ItemRequest struct {
	Uraian *string `json:"uraian" validate:"omitempty,max=500"`

	ProgramPembebanan *string `json:"programPembebanan" validate:"omitempty,max=200"`
	Kegiatan          *string `json:"kegiatan" validate:"omitempty,max=200"`
	RincianOutput     *string `json:"rincianOutput" validate:"omitempty,max=200"`
	KomponenOutput    *string `json:"komponenOutput" validate:"omitempty,max=200"`
	SubKomponen       *string `json:"subKomponen" validate:"omitempty,max=200"`
	Akun              *string `json:"akun" validate:"omitempty,max=200"`

	VolumeSemula      *Number `json:"volumeSemula"`
	SatuanSemula      *string `json:"satuanSemula" validate:"omitempty,max=50"`
	HargaSatuanSemula *Number `json:"hargaSatuanSemula"`

	VolumeMenjadi      *Number `json:"volumeMenjadi"`
	SatuanMenjadi      *string `json:"satuanMenjadi" validate:"omitempty,max=50"`
	HargaSatuanMenjadi *Number `json:"hargaSatuanMenjadi"`

	SisaAnggaran *int64 `json:"sisaAnggaran"`
	Blokir       *int64 `json:"blokir"`
}

func (req ItemRequest) Fields() core.ItemFields {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := sanitizeInput(*s)
		return &v
	}
	return core.ItemFields{
		Uraian:             clean(req.Uraian),
		ProgramPembebanan:  clean(req.ProgramPembebanan),
		Kegiatan:           clean(req.Kegiatan),
		RincianOutput:      clean(req.RincianOutput),
		KomponenOutput:     clean(req.KomponenOutput),
		SubKomponen:        clean(req.SubKomponen),
		Akun:               clean(req.Akun),
		VolumeSemula:       req.VolumeSemula.ptr(),
		SatuanSemula:       clean(req.SatuanSemula),
		HargaSatuanSemula:  req.HargaSatuanSemula.ptr(),
		VolumeMenjadi:      req.VolumeMenjadi.ptr(),
		SatuanMenjadi:      clean(req.SatuanMenjadi),
		HargaSatuanMenjadi: req.HargaSatuanMenjadi.ptr(),
		SisaAnggaran:       req.SisaAnggaran,
		Blokir:             req.Blokir,
	}
}

// RPDRequest sets months of a plan, keyed by Indonesian month name or by
// number ("1".."12").
type RPDRequest struct {
	Months map[string]int64 `json:"months" validate:"required,min=1,max=12"`
}

var errUnknownMonth = errors.New("unknown month")

func parseMonth(key string) (time.Month, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, name := range core.MonthNames {
		if key == name {
			return time.Month(i + 1), nil
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), nil
	}
	return 0, fmt.Errorf("%w %q", errUnknownMonth, key)
}

func (req RPDRequest) MonthValues() (map[time.Month]int64, error) {
	out := make(map[time.Month]int64, len(req.Months))
	for k, v := range req.Months {
		m, err := parseMonth(k)
		if err != nil {
			return nil, err
		}
		if _, dup := out[m]; dup {
			return nil, fmt.Errorf("month %s given twice", core.MonthNames[m-1])
		}
		out[m] = v
	}
	return out, nil
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// ImportRequest is the JSON form of an import: a raw cell grid.
type ImportRequest struct {
	Grid [][]any `json:"grid" validate:"required,min=2"`
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
