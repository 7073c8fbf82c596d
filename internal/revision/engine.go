// Package revision keeps a budget line's status and approval state
// consistent with the edits applied to it.
//
// Every operation is pure: it takes an item value and returns the updated
// value, leaving persistence and identity to the caller.
package revision

import (
	"fmt"
	"strings"

	"anggaran/internal/core"
)

// descriptiveFields may also be set by a non-admin when proposing a new
// line, which has no original allocation yet.
var descriptiveFields = map[core.Field]bool{
	core.FieldUraian:            true,
	core.FieldProgramPembebanan: true,
	core.FieldKegiatan:          true,
	core.FieldRincianOutput:     true,
	core.FieldKomponenOutput:    true,
	core.FieldSubKomponen:       true,
	core.FieldAkun:              true,
}

// checkFields rejects fields a non-admin caller is not allowed to set.
func checkFields(role core.Role, fields core.ItemFields, creating bool) error {
	if role.IsAdmin() {
		return nil
	}
	var locked []string
	for _, f := range fields.Touched() {
		if creating && descriptiveFields[f] {
			continue
		}
		if !core.UserEditableFields[f] {
			locked = append(locked, string(f))
		}
	}
	if len(locked) > 0 {
		return fmt.Errorf("%w: field(s) %s require admin role", core.ErrPermissionDenied, strings.Join(locked, ", "))
	}
	return nil
}

// Create builds a new item from the provided fields. A non-admin may set the
// revised allocation, sisa anggaran and the descriptive fields, never the
// original allocation or blokir.
func Create(role core.Role, id string, fields core.ItemFields) (core.BudgetItem, error) {
	if err := checkFields(role, fields, true); err != nil {
		return core.BudgetItem{}, err
	}
	item := core.BudgetItem{ID: id}
	fields.Apply(&item)
	trimUnits(&item)
	item.Recompute()
	item.Status = core.StatusNew
	item.IsApproved = false
	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, err
	}
	return item, nil
}

// Edit applies field updates to an existing item.
//
// An edit to an approved item always reopens it as changed. Otherwise an
// edit touching the revised allocation re-derives changed/unchanged by
// comparing both sides, except for new items. Deleted items are final.
func Edit(item core.BudgetItem, role core.Role, fields core.ItemFields) (core.BudgetItem, error) {
	if err := checkFields(role, fields, false); err != nil {
		return core.BudgetItem{}, err
	}
	if item.Status == core.StatusDeleted {
		return core.BudgetItem{}, fmt.Errorf("%w: item is deleted", core.ErrValidation)
	}
	touched := fields.Touched()
	if len(touched) == 0 {
		return item, nil
	}
	fields.Apply(&item)
	trimUnits(&item)
	item.Recompute()

	switch {
	case item.IsApproved:
		item.IsApproved = false
		item.Status = core.StatusChanged
	case touchesMenjadi(touched) && item.Status != core.StatusNew:
		item.Status = DeriveStatus(item)
	}

	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, err
	}
	return item, nil
}

// Approve locks in the revision as the new baseline.
func Approve(item core.BudgetItem, role core.Role) (core.BudgetItem, error) {
	if !role.IsAdmin() {
		return core.BudgetItem{}, fmt.Errorf("%w: approve requires admin role", core.ErrPermissionDenied)
	}
	if item.Status == core.StatusDeleted {
		return core.BudgetItem{}, fmt.Errorf("%w: item is deleted", core.ErrValidation)
	}
	item.VolumeSemula = item.VolumeMenjadi
	item.SatuanSemula = item.SatuanMenjadi
	item.HargaSatuanSemula = item.HargaSatuanMenjadi
	item.Recompute()
	item.Selisih = 0
	item.Status = core.StatusUnchanged
	item.IsApproved = true
	return item, nil
}

// Reject discards the revision and restores the original allocation.
func Reject(item core.BudgetItem, role core.Role) (core.BudgetItem, error) {
	if !role.IsAdmin() {
		return core.BudgetItem{}, fmt.Errorf("%w: reject requires admin role", core.ErrPermissionDenied)
	}
	if item.Status == core.StatusDeleted {
		return core.BudgetItem{}, fmt.Errorf("%w: item is deleted", core.ErrValidation)
	}
	item.VolumeMenjadi = item.VolumeSemula
	item.SatuanMenjadi = item.SatuanSemula
	item.HargaSatuanMenjadi = item.HargaSatuanSemula
	item.Recompute()
	item.Selisih = 0
	item.Status = core.StatusUnchanged
	item.IsApproved = false
	return item, nil
}

// CanDelete reports whether role may remove the item. A non-admin may only
// retract an unapproved addition.
func CanDelete(item core.BudgetItem, role core.Role) bool {
	if role.IsAdmin() {
		return true
	}
	return item.Status == core.StatusNew && !item.IsApproved
}

// Delete marks the item as deleted. The record itself is retained.
func Delete(item core.BudgetItem, role core.Role) (core.BudgetItem, error) {
	if !CanDelete(item, role) {
		return core.BudgetItem{}, fmt.Errorf("%w: only unapproved new items can be deleted without admin role", core.ErrPermissionDenied)
	}
	item.Status = core.StatusDeleted
	return item, nil
}

// DeriveStatus compares the original and revised allocations.
func DeriveStatus(item core.BudgetItem) core.Status {
	if item.Differs() {
		return core.StatusChanged
	}
	return core.StatusUnchanged
}

func touchesMenjadi(fields []core.Field) bool {
	for _, f := range fields {
		if f.IsMenjadi() {
			return true
		}
	}
	return false
}

func trimUnits(item *core.BudgetItem) {
	item.Uraian = strings.TrimSpace(item.Uraian)
	item.SatuanSemula = strings.TrimSpace(item.SatuanSemula)
	item.SatuanMenjadi = strings.TrimSpace(item.SatuanMenjadi)
}
