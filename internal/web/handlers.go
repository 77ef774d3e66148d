package web

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxIdentifierFileSize bounds the uploaded identifier file.
const maxIdentifierFileSize = 40 << 20 // 40 MiB

// handleStart accepts an identifier file and schedules a bulk operation.
//
// Multipart form fields:
//   - entityType: USER, ITEM, HOLDINGS_RECORD, or INSTANCE
//   - identifierType: which record field the identifiers address
//   - file: one identifier per line
//   - rules: optional JSON array of patch rules
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	tctx, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing tenant context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIdentifierFileSize)
	if err := r.ParseMultipartForm(maxIdentifierFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	kind := core.EntityKind(r.FormValue("entityType"))
	idType := core.IdentifierType(r.FormValue("identifierType"))

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no identifier file provided")
		return
	}
	defer file.Close()

	var rules []core.Rule
	if rulesJSON := r.FormValue("rules"); rulesJSON != "" {
		if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
			writeError(w, http.StatusBadRequest, "invalid rules format")
			return
		}
	}

	op, err := s.service.Start(r.Context(), tctx, kind, idType, file, rules)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(op)
}

// handleGet returns the persisted operation state.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := operationID(w, r)
	if !ok {
		return
	}
	op, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, op)
}

// handleCancel requests cooperative cancellation.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := operationID(w, r)
	if !ok {
		return
	}
	if err := s.service.Cancel(r.Context(), id); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleErrors pages through the operation error log.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	errs, total, err := s.service.Errors(r.Context(), id, limit, offset)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if errs == nil {
		errs = []core.BulkOperationError{}
	}
	writeJSON(w, map[string]any{
		"errors":       errs,
		"totalRecords": total,
	})
}

// handleErrorsDownload streams the whole error log as CSV.
func (s *Server) handleErrorsDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	const pageSize = 1000
	errs, total, err := s.service.Errors(r.Context(), id, pageSize, 0)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id.String()+`-errors.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"Identifier", "Message", "Severity"})
	for _, e := range errs {
		cw.Write([]string{e.Identifier, e.Message, string(e.Severity)})
	}
	for offset := pageSize; offset < total; offset += pageSize {
		errs, _, err = s.service.Errors(r.Context(), id, pageSize, offset)
		if err != nil || len(errs) == 0 {
			// Mid-stream failure: the partial CSV is already on the wire.
			break
		}
		for _, e := range errs {
			cw.Write([]string{e.Identifier, e.Message, string(e.Severity)})
		}
	}
	cw.Flush()
}

// handleDownload streams the consolidated CSV of a finished operation.
// The notes rewrite happens on the way out, so the stored file keeps
// the raw per-record form.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	tctx, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing tenant context")
		return
	}
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	raw, op, err := s.service.MatchedCSV(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer raw.Close()

	input, err := io.ReadAll(raw)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	sink := core.NewErrorSink(r.Context(), s.errorStore, op.ID)
	out, err := s.consolidator.Consolidate(r.Context(), tctx, op, input, sink)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+op.ID.String()+`-matched.csv"`)
	w.Write(out)
}

// handlePreview maps a live query into a unified table without
// persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tctx, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing tenant context")
		return
	}

	kind := core.EntityKind(chi.URLParam(r, "entityType"))
	query := r.URL.Query().Get("query")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	table, err := s.service.Preview(r.Context(), tctx, kind, query, offset, limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, table)
}

func operationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "operationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operation id")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
