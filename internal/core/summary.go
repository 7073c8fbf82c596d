package core

// SummaryRecord is one aggregation bucket for one dimension value.
type SummaryRecord struct {
	Dimension Dimension `json:"dimension"`
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`

	TotalSemula  int64 `json:"total_semula"`
	TotalMenjadi int64 `json:"total_menjadi"`
	TotalSelisih int64 `json:"total_selisih"`

	NewItems     int `json:"new_items"`
	ChangedItems int `json:"changed_items"`
	TotalItems   int `json:"total_items"`
}

// accountGroupNames holds display names for the chart-of-accounts prefixes.
var accountGroupNames = map[string]string{
	"4":  "Pendapatan",
	"5":  "Belanja",
	"6":  "Transfer",
	"7":  "Pembiayaan",
	"51": "Belanja Pegawai",
	"52": "Belanja Barang dan Jasa",
	"53": "Belanja Modal",
	"54": "Belanja Pembayaran Kewajiban Utang",
	"55": "Belanja Subsidi",
	"56": "Belanja Hibah",
	"57": "Belanja Bantuan Sosial",
	"58": "Belanja Lain-lain",
}

// GroupName returns the display name of an akun group or account group code.
func GroupName(code string) string {
	return accountGroupNames[code]
}
