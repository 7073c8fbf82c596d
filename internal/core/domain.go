package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// StatusUnchanged marks a line whose menjadi values equal its semula values.
	StatusUnchanged Status = "unchanged"
	// StatusChanged marks a line revised away from its semula values.
	StatusChanged Status = "changed"
	// StatusNew marks a line proposed during the revision, with no semula.
	StatusNew Status = "new"
	// StatusDeleted marks a retained line that no longer counts as budget.
	StatusDeleted Status = "deleted"
)

const (
	// RoleAdmin may set every field and approve or reject revisions.
	RoleAdmin Role = "admin"
	// RoleUser may only propose menjadi values and new lines.
	RoleUser Role = "user"
)

type (
	// Status is the lifecycle state of a budget line.
	Status string

	// Role is the caller's privilege flag. The engine never sees identities.
	Role string

	BudgetItem struct {
		ID     string `json:"id"`
		Uraian string `json:"uraian"`

		ProgramPembebanan string `json:"programPembebanan"`
		Kegiatan          string `json:"kegiatan"`
		RincianOutput     string `json:"rincianOutput"`
		KomponenOutput    string `json:"komponenOutput"`
		SubKomponen       string `json:"subKomponen"`
		Akun              string `json:"akun"`

		VolumeSemula      decimal.Decimal `json:"volumeSemula"`
		SatuanSemula      string          `json:"satuanSemula"`
		HargaSatuanSemula decimal.Decimal `json:"hargaSatuanSemula"`
		JumlahSemula      int64           `json:"jumlahSemula"`

		VolumeMenjadi      decimal.Decimal `json:"volumeMenjadi"`
		SatuanMenjadi      string          `json:"satuanMenjadi"`
		HargaSatuanMenjadi decimal.Decimal `json:"hargaSatuanMenjadi"`
		JumlahMenjadi      int64           `json:"jumlahMenjadi"`

		Selisih    int64  `json:"selisih"`
		Status     Status `json:"status"`
		IsApproved bool   `json:"isApproved"`

		SisaAnggaran int64 `json:"sisaAnggaran"`
		Blokir       int64 `json:"blokir"`
	}
)

var (
	// ErrValidation is returned when a field value breaks a budget rule.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied is returned when the role may not perform the change.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when no item has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrImportFormat is returned when a sheet cannot be read as a budget table.
	ErrImportFormat = errors.New("import format error")
	// ErrImportRow is returned for a single row that cannot be imported.
	ErrImportRow = errors.New("import row error")

	// ErrEmptyDescription is returned for a line without uraian.
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	// ErrMissingUnit is returned for a line without a satuan.
	ErrMissingUnit = fmt.Errorf("%w: missing unit", ErrValidation)
	// ErrNegativeNumber is returned for a negative volume, price or amount.
	ErrNegativeNumber = fmt.Errorf("%w: negative number", ErrValidation)
	// ErrInvalidNumber is returned for a value that does not parse as a number.
	ErrInvalidNumber = fmt.Errorf("%w: invalid number", ErrValidation)
	// ErrInvalidStatus is returned for an unknown status string.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
)

// IsAdmin reports whether the role carries the full edit capability.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (s Status) IsValid() bool {
	switch s {
	case StatusUnchanged, StatusChanged, StatusNew, StatusDeleted:
		return true
	default:
		return false
	}
}

// Recompute refreshes the derived amounts from volumes and unit prices.
func (b *BudgetItem) Recompute() {
	b.JumlahSemula = Round1000(Amount(b.VolumeSemula, b.HargaSatuanSemula))
	b.JumlahMenjadi = Round1000(Amount(b.VolumeMenjadi, b.HargaSatuanMenjadi))
	b.Selisih = Difference(b.JumlahSemula, b.JumlahMenjadi)
}

// Differs reports whether any of volume, unit, unit price or amount
// differ between the original and the revised allocation.
func (b BudgetItem) Differs() bool {
	return !b.VolumeSemula.Equal(b.VolumeMenjadi) ||
		b.SatuanSemula != b.SatuanMenjadi ||
		!b.HargaSatuanSemula.Equal(b.HargaSatuanMenjadi) ||
		b.JumlahSemula != b.JumlahMenjadi
}

func (b BudgetItem) Validate() error {
	if strings.TrimSpace(b.Uraian) == "" {
		return ErrEmptyDescription
	}
	if len(b.Uraian) > 500 {
		return fmt.Errorf("%w: description too long (max 500 characters)", ErrValidation)
	}
	if strings.TrimSpace(b.SatuanMenjadi) == "" {
		return fmt.Errorf("%w: %s", ErrMissingUnit, FieldSatuanMenjadi)
	}
	// A brand new line has no original allocation, so its original unit may be blank.
	if b.Status != StatusNew && strings.TrimSpace(b.SatuanSemula) == "" {
		return fmt.Errorf("%w: %s", ErrMissingUnit, FieldSatuanSemula)
	}
	for _, n := range []struct {
		field Field
		value decimal.Decimal
	}{
		{FieldVolumeSemula, b.VolumeSemula},
		{FieldHargaSatuanSemula, b.HargaSatuanSemula},
		{FieldVolumeMenjadi, b.VolumeMenjadi},
		{FieldHargaSatuanMenjadi, b.HargaSatuanMenjadi},
	} {
		if n.value.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeNumber, n.field)
		}
	}
	if b.SisaAnggaran < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeNumber, FieldSisaAnggaran)
	}
	if b.Blokir < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeNumber, FieldBlokir)
	}
	if !b.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// KeyOf returns the grouping value of the item along the given dimension.
func (d Dimension) KeyOf(b BudgetItem) string {
	switch d {
	case DimProgramPembebanan:
		return strings.TrimSpace(b.ProgramPembebanan)
	case DimKegiatan:
		return strings.TrimSpace(b.Kegiatan)
	case DimRincianOutput:
		return strings.TrimSpace(b.RincianOutput)
	case DimKomponenOutput:
		return strings.TrimSpace(b.KomponenOutput)
	case DimSubKomponen:
		return strings.TrimSpace(b.SubKomponen)
	case DimAkun:
		return strings.TrimSpace(b.Akun)
	case DimAkunGroup:
		return AkunGroup(b.Akun)
	case DimAccountGroup:
		return AccountGroup(b.Akun)
	default:
		return ""
	}
}
