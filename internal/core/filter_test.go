package core

import "testing"

func TestFilterSelectionCascade(t *testing.T) {
	f := FilterSelection{
		ProgramPembebanan: "054.01.WA",
		Kegiatan:          "2886",
		RincianOutput:     "EBA",
		KomponenOutput:    "994",
		SubKomponen:       "002",
		Akun:              "521211",
	}

	tests := []struct {
		level Dimension
		check func(FilterSelection) bool
	}{
		{DimProgramPembebanan, func(g FilterSelection) bool {
			return g.Kegiatan == All && g.RincianOutput == All && g.KomponenOutput == All && g.SubKomponen == All && g.Akun == "521211"
		}},
		{DimKegiatan, func(g FilterSelection) bool {
			return g.ProgramPembebanan == "054.01.WA" && g.RincianOutput == All && g.KomponenOutput == All && g.SubKomponen == All
		}},
		{DimRincianOutput, func(g FilterSelection) bool {
			return g.Kegiatan == "2886" && g.KomponenOutput == All && g.SubKomponen == All
		}},
		{DimKomponenOutput, func(g FilterSelection) bool {
			return g.RincianOutput == "EBA" && g.SubKomponen == All
		}},
		{DimAkun, func(g FilterSelection) bool {
			return g.SubKomponen == "002" && g.KomponenOutput == "994"
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			got, err := f.Set(tt.level, "X")
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got.Value(tt.level) != "X" {
				t.Fatalf("level not set: %+v", got)
			}
			if !tt.check(got) {
				t.Fatalf("unexpected cascade: %+v", got)
			}
		})
	}

	if _, err := f.Set(DimAkunGroup, "52"); err == nil {
		t.Fatalf("expected error for non-filter level")
	}
}

func TestFilterSelectionMatches(t *testing.T) {
	item := BudgetItem{ProgramPembebanan: "P1", Kegiatan: "K1", Akun: "521211"}
	if !NewFilterSelection().Matches(item) {
		t.Fatalf("all-selection should match")
	}
	if !(FilterSelection{}).Matches(item) {
		t.Fatalf("zero selection should match")
	}
	f, _ := NewFilterSelection().Set(DimKegiatan, "K1")
	if !f.Matches(item) {
		t.Fatalf("expected match on kegiatan")
	}
	f, _ = f.Set(DimAkun, "999999")
	if f.Matches(item) {
		t.Fatalf("expected mismatch on akun")
	}
}

func TestAccountGroups(t *testing.T) {
	cases := []struct {
		akun, account, akunGroup string
	}{
		{"521211", "5", "52"},
		{"521211 - Belanja Bahan", "5", "52"},
		{"5", "5", ""},
		{"", "", ""},
		{"abc", "", ""},
	}
	for _, tc := range cases {
		if got := AccountGroup(tc.akun); got != tc.account {
			t.Errorf("AccountGroup(%q) = %q, want %q", tc.akun, got, tc.account)
		}
		if got := AkunGroup(tc.akun); got != tc.akunGroup {
			t.Errorf("AkunGroup(%q) = %q, want %q", tc.akun, got, tc.akunGroup)
		}
	}
	if GroupName("52") != "Belanja Barang dan Jasa" {
		t.Errorf("unexpected group name %q", GroupName("52"))
	}
}

func TestParseDimension(t *testing.T) {
	if d, err := ParseDimension("akunGroup"); err != nil || d != DimAkunGroup {
		t.Fatalf("ParseDimension: %v %v", d, err)
	}
	if _, err := ParseDimension("bogus"); err == nil {
		t.Fatalf("expected error")
	}
}
