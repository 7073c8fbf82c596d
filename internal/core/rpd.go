package core

import "time"

const (
	RPDOk           RPDStatus = "ok"
	RPDBelumIsi     RPDStatus = "belum_isi"
	RPDBelumLengkap RPDStatus = "belum_lengkap"
	RPDSisa         RPDStatus = "sisa"
)

// RPDStatus classifies a disbursement plan against its revised total.
type RPDStatus string

// RPDItem is the twelve-month disbursement plan of one budget item.
type RPDItem struct {
	ItemID string `json:"item_id"`

	// Months holds januari..desember at index 0..11.
	Months [12]int64 `json:"months"`

	JumlahMenjadi int64     `json:"jumlah_menjadi"`
	JumlahRPD     int64     `json:"jumlah_rpd"`
	Selisih       int64     `json:"selisih"`
	Status        RPDStatus `json:"status"`
}

// MonthNames are the Indonesian month labels used by disbursement tables.
var MonthNames = [12]string{
	"januari", "februari", "maret", "april", "mei", "juni",
	"juli", "agustus", "september", "oktober", "november", "desember",
}

// Month returns the planned amount for m.
func (r RPDItem) Month(m time.Month) int64 {
	if m < time.January || m > time.December {
		return 0
	}
	return r.Months[m-1]
}
