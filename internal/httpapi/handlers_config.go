package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hycord/irc-notify/internal/configstore"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Root())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var root configstore.RootConfig
	if err := decodeJSON(r, &root); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.store.PutRoot(root); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.ReloadFull(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ReloadFull(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.ExportBundle()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="irc-notify-bundle.json.gz"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleConfigUpload(w http.ResponseWriter, r *http.Request) {
	mode := configstore.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = configstore.ImportMerge
	}
	if mode != configstore.ImportMerge && mode != configstore.ImportReplace {
		writeError(w, http.StatusBadRequest, `mode must be "merge" or "replace"`)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	if err := s.store.ImportBundle(data, mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// handleConfigFiles lists, per category, the entity ids currently
// stored on disk (spec §4.10 GET /api/config/files).
func (s *Server) handleConfigFiles(w http.ResponseWriter, r *http.Request) {
	out := map[string][]string{}
	for _, category := range configstore.AllCategories() {
		ids, err := s.store.CategoryIDs(category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out[category] = ids
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfigFileGet(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "name")
	data, err := s.store.ReadCategoryFile(category, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "config file not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleConfigFilePut writes a category entity's JSON body under the
// body's own id; if that id differs from the URL-supplied name, the
// URL-named file is removed and the response reports renamed:true (spec §4.10 PUT/POST
// /api/config/file/{category}/{name}).
func (s *Server) handleConfigFilePut(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "name")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	id, renamed, err := s.store.PutCategoryFile(category, name, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "renamed": renamed})
}

// handleConfigFileDelete removes a category entity and reports the
// cascade impact on events referencing it (spec §4.10 DELETE
// /api/config/file/{category}/{name}).
func (s *Server) handleConfigFileDelete(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "name")

	deleted, updatedFiles, totalFiles, err := s.store.DeleteCategoryFile(category, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"cascade": map[string]int{"updatedFiles": updatedFiles, "totalFiles": totalFiles},
	})
}
