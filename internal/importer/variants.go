package importer

import (
	"strings"
	"unicode"

	"anggaran/internal/core"
)

// variants lists the accepted header spellings per field. Entries are
// normalized once at start-up.
var variants = map[core.Field][]string{
	core.FieldUraian:            {"uraian", "uraian kegiatan", "uraian item", "deskripsi", "description", "keterangan", "nama item"},
	core.FieldProgramPembebanan: {"program pembebanan", "program", "kode program"},
	core.FieldKegiatan:          {"kegiatan", "kode kegiatan", "activity"},
	core.FieldRincianOutput:     {"rincian output", "ro", "kode ro"},
	core.FieldKomponenOutput:    {"komponen output", "komponen", "kode komponen"},
	core.FieldSubKomponen:       {"sub komponen", "sub komp", "kode sub komponen"},
	core.FieldAkun:              {"akun", "kode akun", "mak", "account"},

	core.FieldVolumeSemula:      {"volume semula", "vol semula", "volume awal", "qty semula"},
	core.FieldSatuanSemula:      {"satuan semula", "sat semula", "unit semula", "satuan awal"},
	core.FieldHargaSatuanSemula: {"harga satuan semula", "harga semula", "price semula", "harga satuan awal"},

	core.FieldVolumeMenjadi:      {"volume menjadi", "vol menjadi", "volume revisi", "qty menjadi"},
	core.FieldSatuanMenjadi:      {"satuan menjadi", "sat menjadi", "unit menjadi", "satuan revisi"},
	core.FieldHargaSatuanMenjadi: {"harga satuan menjadi", "harga menjadi", "price menjadi", "harga satuan revisi"},

	core.FieldSisaAnggaran: {"sisa anggaran", "sisa pagu", "sisa"},
	core.FieldBlokir:       {"blokir", "pagu blokir", "blocked"},
}

// tokenPairs is the second pass for fields no header matched directly.
var tokenPairs = []struct {
	field core.Field
	a, b  string
}{
	{core.FieldHargaSatuanSemula, "harga", "semula"},
	{core.FieldHargaSatuanMenjadi, "harga", "menjadi"},
	{core.FieldVolumeSemula, "vol", "semula"},
	{core.FieldVolumeMenjadi, "vol", "menjadi"},
	{core.FieldSatuanSemula, "sat", "semula"},
	{core.FieldSatuanMenjadi, "sat", "menjadi"},
	{core.FieldSisaAnggaran, "sisa", "anggaran"},
	{core.FieldSubKomponen, "sub", "komponen"},
	{core.FieldKomponenOutput, "komponen", "output"},
	{core.FieldRincianOutput, "rincian", "output"},
}

// required must all be mapped for an import to proceed.
var required = []core.Field{
	core.FieldUraian,
	core.FieldVolumeSemula, core.FieldSatuanSemula, core.FieldHargaSatuanSemula,
	core.FieldVolumeMenjadi, core.FieldSatuanMenjadi, core.FieldHargaSatuanMenjadi,
}

// Variants shorter than minContainLen ("ro", "mak") only match exactly. A
// header cell must be at least minReverseLen long to match a longer variant
// that contains it, so a bare "Kode" column claims nothing.
const (
	minContainLen = 4
	minReverseLen = 5
)

var normalizedVariants = func() map[core.Field][]string {
	out := make(map[core.Field][]string, len(variants))
	for f, vs := range variants {
		for _, v := range vs {
			out[f] = append(out[f], normalize(v))
		}
	}
	return out
}()

// normalize lowercases s and drops whitespace, hyphens and underscores.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

const (
	rankNone = iota
	rankReverse
	rankContains
	rankExact
)

// score is how well a normalized header cell matches a field.
type score struct {
	rank   int
	length int
}

func (s score) better(o score) bool {
	if s.rank != o.rank {
		return s.rank > o.rank
	}
	return s.length > o.length
}

func matchField(cell string, f core.Field) score {
	var best score
	if cell == "" {
		return best
	}
	for _, v := range normalizedVariants[f] {
		var s score
		switch {
		case cell == v:
			s = score{rankExact, len(v)}
		case len(v) >= minContainLen && strings.Contains(cell, v):
			s = score{rankContains, len(v)}
		case len(cell) >= minReverseLen && strings.Contains(v, cell):
			s = score{rankReverse, len(cell)}
		}
		if s.better(best) {
			best = s
		}
	}
	return best
}

// matchesAny reports whether the cell matches any known field.
func matchesAny(cell string) bool {
	for f := range normalizedVariants {
		if matchField(cell, f).rank != rankNone {
			return true
		}
	}
	return false
}
