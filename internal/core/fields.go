package core

import "github.com/shopspring/decimal"

// Field names a BudgetItem field. The same names are used as canonical
// import columns and in permission checks.
type Field string

const (
	FieldUraian             Field = "uraian"
	FieldProgramPembebanan  Field = "programPembebanan"
	FieldKegiatan           Field = "kegiatan"
	FieldRincianOutput      Field = "rincianOutput"
	FieldKomponenOutput     Field = "komponenOutput"
	FieldSubKomponen        Field = "subKomponen"
	FieldAkun               Field = "akun"
	FieldVolumeSemula       Field = "volumeSemula"
	FieldSatuanSemula       Field = "satuanSemula"
	FieldHargaSatuanSemula  Field = "hargaSatuanSemula"
	FieldVolumeMenjadi      Field = "volumeMenjadi"
	FieldSatuanMenjadi      Field = "satuanMenjadi"
	FieldHargaSatuanMenjadi Field = "hargaSatuanMenjadi"
	FieldSisaAnggaran       Field = "sisaAnggaran"
	FieldBlokir             Field = "blokir"
)

// UserEditableFields are the only fields a non-admin caller may set.
var UserEditableFields = map[Field]bool{
	FieldVolumeMenjadi:      true,
	FieldSatuanMenjadi:      true,
	FieldHargaSatuanMenjadi: true,
	FieldSisaAnggaran:       true,
}

// IsMenjadi reports whether the field belongs to the revised allocation.
func (f Field) IsMenjadi() bool {
	return f == FieldVolumeMenjadi || f == FieldSatuanMenjadi || f == FieldHargaSatuanMenjadi
}

// IsSemula reports whether the field belongs to the original allocation.
func (f Field) IsSemula() bool {
	return f == FieldVolumeSemula || f == FieldSatuanSemula || f == FieldHargaSatuanSemula
}

// ItemFields is a partial set of BudgetItem fields. A nil pointer means
// "not provided".
type ItemFields struct {
	Uraian *string `json:"uraian,omitempty"`

	ProgramPembebanan *string `json:"programPembebanan,omitempty"`
	Kegiatan          *string `json:"kegiatan,omitempty"`
	RincianOutput     *string `json:"rincianOutput,omitempty"`
	KomponenOutput    *string `json:"komponenOutput,omitempty"`
	SubKomponen       *string `json:"subKomponen,omitempty"`
	Akun              *string `json:"akun,omitempty"`

	VolumeSemula      *decimal.Decimal `json:"volumeSemula,omitempty"`
	SatuanSemula      *string          `json:"satuanSemula,omitempty"`
	HargaSatuanSemula *decimal.Decimal `json:"hargaSatuanSemula,omitempty"`

	VolumeMenjadi      *decimal.Decimal `json:"volumeMenjadi,omitempty"`
	SatuanMenjadi      *string          `json:"satuanMenjadi,omitempty"`
	HargaSatuanMenjadi *decimal.Decimal `json:"hargaSatuanMenjadi,omitempty"`

	SisaAnggaran *int64 `json:"sisaAnggaran,omitempty"`
	Blokir       *int64 `json:"blokir,omitempty"`
}

// Touched lists the fields present in the set, in declaration order.
func (f ItemFields) Touched() []Field {
	var out []Field
	add := func(set bool, name Field) {
		if set {
			out = append(out, name)
		}
	}
	add(f.Uraian != nil, FieldUraian)
	add(f.ProgramPembebanan != nil, FieldProgramPembebanan)
	add(f.Kegiatan != nil, FieldKegiatan)
	add(f.RincianOutput != nil, FieldRincianOutput)
	add(f.KomponenOutput != nil, FieldKomponenOutput)
	add(f.SubKomponen != nil, FieldSubKomponen)
	add(f.Akun != nil, FieldAkun)
	add(f.VolumeSemula != nil, FieldVolumeSemula)
	add(f.SatuanSemula != nil, FieldSatuanSemula)
	add(f.HargaSatuanSemula != nil, FieldHargaSatuanSemula)
	add(f.VolumeMenjadi != nil, FieldVolumeMenjadi)
	add(f.SatuanMenjadi != nil, FieldSatuanMenjadi)
	add(f.HargaSatuanMenjadi != nil, FieldHargaSatuanMenjadi)
	add(f.SisaAnggaran != nil, FieldSisaAnggaran)
	add(f.Blokir != nil, FieldBlokir)
	return out
}

// Apply copies every provided field onto the item. Derived amounts are
// not touched; call Recompute afterwards.
func (f ItemFields) Apply(b *BudgetItem) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDec := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&b.Uraian, f.Uraian)
	setStr(&b.ProgramPembebanan, f.ProgramPembebanan)
	setStr(&b.Kegiatan, f.Kegiatan)
	setStr(&b.RincianOutput, f.RincianOutput)
	setStr(&b.KomponenOutput, f.KomponenOutput)
	setStr(&b.SubKomponen, f.SubKomponen)
	setStr(&b.Akun, f.Akun)
	setDec(&b.VolumeSemula, f.VolumeSemula)
	setStr(&b.SatuanSemula, f.SatuanSemula)
	setDec(&b.HargaSatuanSemula, f.HargaSatuanSemula)
	setDec(&b.VolumeMenjadi, f.VolumeMenjadi)
	setStr(&b.SatuanMenjadi, f.SatuanMenjadi)
	setDec(&b.HargaSatuanMenjadi, f.HargaSatuanMenjadi)
	if f.SisaAnggaran != nil {
		b.SisaAnggaran = *f.SisaAnggaran
	}
	if f.Blokir != nil {
		b.Blokir = *f.Blokir
	}
}
