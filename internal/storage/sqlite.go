package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"anggaran/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serialises saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const itemColumns = `id, version, uraian,
	program_pembebanan, kegiatan, rincian_output, komponen_output, sub_komponen, akun,
	volume_semula, satuan_semula, harga_satuan_semula, jumlah_semula,
	volume_menjadi, satuan_menjadi, harga_satuan_menjadi, jumlah_menjadi,
	selisih, status, is_approved, sisa_anggaran, blokir`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (StoredItem, error) {
	var (
		it                         StoredItem
		volS, hargaS, volM, hargaM string
		status                     string
		approved                   int64
	)
	err := s.Scan(&it.ID, &it.Version, &it.Uraian,
		&it.ProgramPembebanan, &it.Kegiatan, &it.RincianOutput, &it.KomponenOutput, &it.SubKomponen, &it.Akun,
		&volS, &it.SatuanSemula, &hargaS, &it.JumlahSemula,
		&volM, &it.SatuanMenjadi, &hargaM, &it.JumlahMenjadi,
		&it.Selisih, &status, &approved, &it.SisaAnggaran, &it.Blokir)
	if err != nil {
		return StoredItem{}, err
	}
	for _, d := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{volS, &it.VolumeSemula}, {hargaS, &it.HargaSatuanSemula},
		{volM, &it.VolumeMenjadi}, {hargaM, &it.HargaSatuanMenjadi},
	} {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return StoredItem{}, fmt.Errorf("item %s: decode decimal %q: %w", it.ID, d.src, err)
		}
		*d.dst = v
	}
	it.Status = core.Status(status)
	it.IsApproved = approved != 0
	return it, nil
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]StoredItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM budget_items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []StoredItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id string) (StoredItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM budget_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredItem{}, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return StoredItem{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

func (r *SQLiteRepository) SaveItem(ctx context.Context, item core.BudgetItem) (int64, error) {
	approved := 0
	if item.IsApproved {
		approved = 1
	}
	var version int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO budget_items (`+itemColumns+`)
		VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = budget_items.version + 1,
			uraian = excluded.uraian,
			program_pembebanan = excluded.program_pembebanan,
			kegiatan = excluded.kegiatan,
			rincian_output = excluded.rincian_output,
			komponen_output = excluded.komponen_output,
			sub_komponen = excluded.sub_komponen,
			akun = excluded.akun,
			volume_semula = excluded.volume_semula,
			satuan_semula = excluded.satuan_semula,
			harga_satuan_semula = excluded.harga_satuan_semula,
			jumlah_semula = excluded.jumlah_semula,
			volume_menjadi = excluded.volume_menjadi,
			satuan_menjadi = excluded.satuan_menjadi,
			harga_satuan_menjadi = excluded.harga_satuan_menjadi,
			jumlah_menjadi = excluded.jumlah_menjadi,
			selisih = excluded.selisih,
			status = excluded.status,
			is_approved = excluded.is_approved,
			sisa_anggaran = excluded.sisa_anggaran,
			blokir = excluded.blokir,
			updated_at = CURRENT_TIMESTAMP
		RETURNING version`,
		item.ID, item.Uraian,
		item.ProgramPembebanan, item.Kegiatan, item.RincianOutput, item.KomponenOutput, item.SubKomponen, item.Akun,
		item.VolumeSemula.String(), item.SatuanSemula, item.HargaSatuanSemula.String(), item.JumlahSemula,
		item.VolumeMenjadi.String(), item.SatuanMenjadi, item.HargaSatuanMenjadi.String(), item.JumlahMenjadi,
		item.Selisih, string(item.Status), approved, item.SisaAnggaran, item.Blokir,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save item %s: %w", item.ID, err)
	}

	slog.DebugContext(ctx, "Budget item saved to SQLite",
		"item_id", item.ID,
		"item_version", version,
		"item_status", item.Status)
	return version, nil
}

func scanRPD(s scanner) (core.RPDItem, error) {
	var (
		r      core.RPDItem
		months string
		status string
	)
	if err := s.Scan(&r.ItemID, &months, &r.JumlahMenjadi, &r.JumlahRPD, &r.Selisih, &status); err != nil {
		return core.RPDItem{}, err
	}
	if err := json.Unmarshal([]byte(months), &r.Months); err != nil {
		return core.RPDItem{}, fmt.Errorf("rpd %s: decode months: %w", r.ItemID, err)
	}
	r.Status = core.RPDStatus(status)
	return r, nil
}

func (r *SQLiteRepository) ListRPD(ctx context.Context) ([]core.RPDItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, months, jumlah_menjadi, jumlah_rpd, selisih, status FROM rpd_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("list rpd: %w", err)
	}
	defer rows.Close()

	var out []core.RPDItem
	for rows.Next() {
		p, err := scanRPD(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rpd: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetRPD(ctx context.Context, itemID string) (core.RPDItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT item_id, months, jumlah_menjadi, jumlah_rpd, selisih, status FROM rpd_items WHERE item_id = ?`, itemID)
	p, err := scanRPD(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RPDItem{}, fmt.Errorf("rpd %s: %w", itemID, core.ErrNotFound)
	}
	if err != nil {
		return core.RPDItem{}, fmt.Errorf("get rpd %s: %w", itemID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) SaveRPD(ctx context.Context, p core.RPDItem) error {
	months, err := json.Marshal(p.Months)
	if err != nil {
		return fmt.Errorf("encode months: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rpd_items (item_id, months, jumlah_menjadi, jumlah_rpd, selisih, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			months = excluded.months,
			jumlah_menjadi = excluded.jumlah_menjadi,
			jumlah_rpd = excluded.jumlah_rpd,
			selisih = excluded.selisih,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		p.ItemID, string(months), p.JumlahMenjadi, p.JumlahRPD, p.Selisih, string(p.Status))
	if err != nil {
		return fmt.Errorf("save rpd %s: %w", p.ItemID, err)
	}
	return nil
}
