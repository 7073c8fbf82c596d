package http

import (
	"bytes"
	"mime"
	"net/http"
	"time"

	"anggaran/internal/core"
	"anggaran/internal/importer"
	"anggaran/internal/log"
	"anggaran/internal/storage"
	"anggaran/internal/xlsx"
)

const maxUploadSize = 10 << 20

type rowError struct {
	Row   int        `json:"row"`
	Field core.Field `json:"field,omitempty"`
	Error string     `json:"error"`
}

type importResponse struct {
	Imported  int                   `json:"imported"`
	Items     []storage.StoredItem  `json:"items"`
	Skipped   []rowError            `json:"skipped"`
	Warnings  []importer.RowWarning `json:"warnings"`
	Empty     int                   `json:"empty"`
	HeaderRow int                   `json:"header_row"`
}

// handleImport accepts either a multipart upload ("file", optional
// "sheet") of an .xlsx workbook or a JSON body {"grid": [[...]]}. Filter
// query parameters scope hierarchy columns the sheet lacks.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var grid importer.Grid
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, _, err := r.FormFile("file")
		if err != nil {
			BadRequestError("missing workbook in form field \"file\"").Write(w)
			return
		}
		defer file.Close()
		grid, err = xlsx.Decode(file, r.FormValue("sheet"))
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
	case "application/json":
		var req ImportRequest
		if resp := decodeJSON(r, &req); resp != nil {
			resp.Write(w)
			return
		}
		grid = req.Grid
	default:
		ErrorResponse(http.StatusUnsupportedMediaType, "expected multipart/form-data or application/json").Write(w)
		return
	}

	rep, err := s.budget.Import(r.Context(), principal(r).Role, grid, ParseFilter(r.URL.Query()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	resp := importResponse{
		Imported:  len(rep.Imported),
		Items:     rep.Imported,
		Skipped:   make([]rowError, 0, len(rep.Skipped)),
		Warnings:  rep.Warnings,
		Empty:     rep.Empty,
		HeaderRow: rep.HeaderRow,
	}
	if resp.Items == nil {
		resp.Items = []storage.StoredItem{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []importer.RowWarning{}
	}
	for _, e := range rep.Skipped {
		resp.Skipped = append(resp.Skipped, rowError{Row: e.Row, Field: e.Field, Error: e.Err.Error()})
	}
	OK(resp).Write(w)
}

// handleExport streams the whole workbook as .xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tables, err := s.budget.ExportTables(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := xlsx.Encode(&buf, tables...); err != nil {
		FromError(r, err).Write(w)
		return
	}
	filename := "anggaran-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Export write interrupted", log.FieldError, err)
	}
}
