package http

import (
	"net/http"

	applog "rekrutacje/internal/log"
	"rekrutacje/internal/services"
)

// exportFilenameLayout names downloads like rekrutacje_export_20240501_153000.json.
const exportFilenameLayout = "20060102_150405"

// handleExport serves GET /api/export as a JSON file download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	filename := "rekrutacje_export_" + doc.ExportedAt.UTC().Format(exportFilenameLayout) + ".json"
	NewJSONResponse().
		Attachment(filename).
		Payload(doc).
		Write(w)
}

// handleImport serves POST /api/import. The document comes from a multipart
// "file" field or the raw body, as an export document or a bare array.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := importBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}
	defer body.Close()

	items, err := services.DecodeImport(body)
	if err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}

	result, err := s.transfer.ImportRaw(r.Context(), items)
	if err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}
	s.countWrite(&s.appMetrics.importsRun)

	NewJSONResponse().Payload(result).Write(w)
}
