package api

import (
	"net/http"

	"github.com/examlens/examlens/internal/schema"
)

type schemaResponse struct {
	Dialect string         `json:"dialect"`
	Tables  []schema.Table `json:"tables"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema description is not configured", false)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{
		Dialect: deps.Schema.Dialect(),
		Tables:  deps.Schema.Tables(),
	})
}
