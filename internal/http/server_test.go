package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"anggaran/internal/auth"
	"anggaran/internal/cache"
	"anggaran/internal/core"
	"anggaran/internal/services"
	"anggaran/internal/storage"
	"anggaran/internal/xlsx"
)

type testEnv struct {
	srv   *Server
	admin string
	user  string
}

func newTestEnv(t *testing.T, rpm int) *testEnv {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	accounts, err := auth.NewStaticAccounts([]auth.Account{
		{Username: "kpa", Role: core.RoleAdmin, PasswordHash: string(hash)},
		{Username: "staf", Role: core.RoleUser, PasswordHash: string(hash)},
	})
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	tokens := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)

	srv, err := NewServer(":0", Deps{
		Budget:            services.NewBudgetService(storage.NewMemoryRepository()),
		Accounts:          accounts,
		Tokens:            tokens,
		RequestsPerMinute: rpm,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.rateLimiter.Stop() })

	admin, _, err := tokens.Issue(auth.Principal{Username: "kpa", Role: core.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	user, _, err := tokens.Issue(auth.Principal{Username: "staf", Role: core.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return &testEnv{srv: srv, admin: admin, user: user}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// decodeData unpacks the envelope and returns its data into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Code   int             `json:"code"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if env.Code != rec.Code {
		t.Fatalf("envelope code %d != status %d", env.Code, rec.Code)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
}

const createBody = `{
	"uraian": "Jasa konsultasi",
	"programPembebanan": "054.01.WA",
	"kegiatan": "4216",
	"akun": "522151",
	"volumeSemula": 1, "satuanSemula": "paket", "hargaSatuanSemula": "Rp 1.000.000",
	"volumeMenjadi": 1, "satuanMenjadi": "paket", "hargaSatuanMenjadi": 1500000
}`

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t, 0)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := e.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t, 0)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"username":"KPA","password":"rahasia"}`, http.StatusOK},
		{"wrong password", `{"username":"kpa","password":"salah"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"nobody","password":"rahasia"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"kpa"}`, http.StatusBadRequest},
		{"unknown field", `{"username":"kpa","password":"rahasia","role":"admin"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/login", "", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var resp loginResponse
			decodeData(t, rec, &resp)
			if resp.User.Role != core.RoleAdmin || resp.Token == "" {
				t.Fatalf("unexpected login response: %+v", resp)
			}
			if rec := e.do(t, http.MethodGet, "/api/items", resp.Token, ""); rec.Code != http.StatusOK {
				t.Fatalf("issued token rejected: %d", rec.Code)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t, 0)
	for _, token := range []string{"", "not-a-jwt"} {
		rec := e.do(t, http.MethodGet, "/api/items", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("token %q: missing WWW-Authenticate", token)
		}
	}
}

func TestItemLifecycle(t *testing.T) {
	e := newTestEnv(t, 0)

	rec := e.do(t, http.MethodPost, "/api/items", e.admin, createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var item storage.StoredItem
	decodeData(t, rec, &item)
	if item.Selisih != 500_000 || item.Status != core.StatusNew {
		t.Fatalf("unexpected item: %+v", item)
	}
	if rec.Header().Get("Location") != "/api/items/"+item.ID {
		t.Errorf("location = %q", rec.Header().Get("Location"))
	}

	steps := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"user cannot approve", http.MethodPost, "/api/items/" + item.ID + "/approve", e.user, "", http.StatusForbidden},
		{"admin approves", http.MethodPost, "/api/items/" + item.ID + "/approve", e.admin, "", http.StatusOK},
		{"user cannot touch semula", http.MethodPatch, "/api/items/" + item.ID, e.user, `{"volumeSemula": 3}`, http.StatusForbidden},
		{"user edits menjadi", http.MethodPatch, "/api/items/" + item.ID, e.user, `{"hargaSatuanMenjadi": "2.000.000"}`, http.StatusOK},
		{"negative volume", http.MethodPatch, "/api/items/" + item.ID, e.admin, `{"volumeMenjadi": -1}`, http.StatusUnprocessableEntity},
		{"bad number", http.MethodPatch, "/api/items/" + item.ID, e.admin, `{"volumeMenjadi": "abc"}`, http.StatusBadRequest},
		{"unknown item", http.MethodPost, "/api/items/nope/reject", e.admin, "", http.StatusNotFound},
		{"user cannot delete approved", http.MethodDelete, "/api/items/" + item.ID, e.user, "", http.StatusForbidden},
	}
	for _, st := range steps {
		rec := e.do(t, st.method, st.path, st.token, st.body)
		if rec.Code != st.want {
			t.Fatalf("%s: status = %d, want %d: %s", st.name, rec.Code, st.want, rec.Body.String())
		}
	}

	rec = e.do(t, http.MethodGet, "/api/items/"+item.ID, e.user, "")
	decodeData(t, rec, &item)
	if item.Status != core.StatusChanged || item.IsApproved || item.JumlahMenjadi != 2_000_000 {
		t.Fatalf("unexpected item after edits: %+v", item.BudgetItem)
	}

	var list []storage.StoredItem
	decodeData(t, e.do(t, http.MethodGet, "/api/items?kegiatan=4216", e.user, ""), &list)
	if len(list) != 1 {
		t.Fatalf("filtered list = %d items, want 1", len(list))
	}
	decodeData(t, e.do(t, http.MethodGet, "/api/items?kegiatan=9999", e.user, ""), &list)
	if len(list) != 0 {
		t.Fatalf("filtered list = %d items, want 0", len(list))
	}

	var rep services.SummaryReport
	decodeData(t, e.do(t, http.MethodGet, "/api/summary?dimension=akunGroup", e.user, ""), &rep)
	if len(rep.Records) != 1 || rep.Records[0].Name != "Belanja Barang dan Jasa" || rep.Totals.TotalSelisih != 1_000_000 {
		t.Fatalf("unexpected summary: %+v", rep)
	}
	if rec := e.do(t, http.MethodGet, "/api/summary?dimension=bogus", e.user, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus dimension status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodDelete, "/api/items/"+item.ID, e.admin, "")
	decodeData(t, rec, &item)
	if item.Status != core.StatusDeleted {
		t.Fatalf("status after delete = %s", item.Status)
	}
	decodeData(t, e.do(t, http.MethodGet, "/api/summary?dimension=akunGroup", e.user, ""), &rep)
	if len(rep.Records) != 0 {
		t.Fatalf("deleted items must not be summarized: %+v", rep.Records)
	}
	rec = e.do(t, http.MethodPatch, "/api/items/"+item.ID, e.admin, `{"hargaSatuanMenjadi": "1.000.000"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("edit of deleted item status = %d, want 422", rec.Code)
	}
}

func TestRPDEndpoints(t *testing.T) {
	e := newTestEnv(t, 0)
	var item storage.StoredItem
	decodeData(t, e.do(t, http.MethodPost, "/api/items", e.admin, createBody), &item)

	var got rpdResponse
	decodeData(t, e.do(t, http.MethodGet, "/api/rpd/"+item.ID, e.user, ""), &got)
	if got.Plan.Status != core.RPDBelumIsi {
		t.Fatalf("status = %s, want belum_isi", got.Plan.Status)
	}

	rec := e.do(t, http.MethodPut, "/api/rpd/"+item.ID, e.user, `{"months":{"januari":500000,"2":500000,"Maret":500000}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &got)
	if got.Plan.Status != core.RPDOk || got.Progress.FilledMonths != 3 || got.Progress.Percent != 100 {
		t.Fatalf("unexpected plan: %+v", got)
	}

	for body, want := range map[string]int{
		`{"months":{"smarch":1}}`:        http.StatusBadRequest,
		`{"months":{}}`:                  http.StatusBadRequest,
		`{"months":{"april":-5}}`:        http.StatusUnprocessableEntity,
		`{"months":{"1":1,"januari":2}}`: http.StatusBadRequest,
	} {
		if rec := e.do(t, http.MethodPut, "/api/rpd/"+item.ID, e.user, body); rec.Code != want {
			t.Errorf("%s: status = %d, want %d", body, rec.Code, want)
		}
	}
	if rec := e.do(t, http.MethodGet, "/api/rpd/missing", e.user, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing item status = %d", rec.Code)
	}
}

func TestImportAndExport(t *testing.T) {
	e := newTestEnv(t, 0)

	grid := `{"grid":[
		["Daftar Rincian"],
		["Uraian","Volume Semula","Satuan Semula","Harga Satuan Semula","Volume Menjadi","Satuan Menjadi","Harga Satuan Menjadi"],
		["Jasa konsultasi",1,"Paket",1000000,1,"Paket",1500000],
		["Sewa",2,"Unit",-5,2,"Unit",100000],
		["",null,null,null,null,null,null]
	]}`
	if rec := e.do(t, http.MethodPost, "/api/import", e.user, grid); rec.Code != http.StatusForbidden {
		t.Fatalf("user import status = %d, want 403", rec.Code)
	}

	rec := e.do(t, http.MethodPost, "/api/import?kegiatan=4216", e.admin, grid)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	var rep importResponse
	decodeData(t, rec, &rep)
	if rep.Imported != 1 || len(rep.Skipped) != 1 || rep.Empty != 1 || rep.HeaderRow != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Skipped[0].Row != 4 || rep.Skipped[0].Field != core.FieldHargaSatuanSemula {
		t.Fatalf("unexpected skipped row: %+v", rep.Skipped[0])
	}
	if rep.Items[0].Kegiatan != "4216" || rep.Items[0].Selisih != 500_000 {
		t.Fatalf("unexpected imported item: %+v", rep.Items[0].BudgetItem)
	}

	rec = e.do(t, http.MethodPost, "/api/import", e.admin, `{"grid":[["foo","bar"],["1","2"]]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad header status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/export", e.user, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsx.ContentType {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	// The item sheet of an export imports back.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "anggaran.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(rec.Body.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.WriteField("sheet", "Rincian"); err != nil {
		t.Fatalf("field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.admin)
	up := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(up, req)
	if up.Code != http.StatusOK {
		t.Fatalf("re-import status = %d: %s", up.Code, up.Body.String())
	}
	decodeData(t, up, &rep)
	if rep.Imported != 1 || rep.Items[0].JumlahMenjadi != 1_500_000 {
		t.Fatalf("unexpected re-import: %+v", rep)
	}

	if rec := e.do(t, http.MethodPost, "/api/import", e.admin, ""); rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("no content type status = %d", rec.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	e := newTestEnv(t, 2)

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests} {
		if rec := e.do(t, http.MethodPost, "/api/items", e.admin, createBody); rec.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, want)
		}
	}
	if rec := e.do(t, http.MethodGet, "/api/items", e.admin, ""); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited: %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	e := newTestEnv(t, 1)
	e.srv.cacheStats = func() cache.Stats { return cache.Stats{Hits: 3, Misses: 1, Size: 2} }

	e.do(t, http.MethodPost, "/api/items", e.admin, createBody)
	e.do(t, http.MethodPost, "/api/items", e.admin, createBody)

	rec := e.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"http_requests_total 3",
		"rate_limit_hits_total 1",
		"summary_cache_hits_total 3",
		"summary_cache_entries 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}
