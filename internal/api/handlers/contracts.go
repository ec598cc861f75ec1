package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/discovery"
	"github.com/wonny/datagate/internal/pipeline"
	"github.com/wonny/datagate/pkg/logger"
)

// ContractHandler handles contract discovery, validation and refresh endpoints
type ContractHandler struct {
	discovery    *discovery.Service
	validator    contracts.ContractValidator
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(disc *discovery.Service, validator contracts.ContractValidator, orch *pipeline.Orchestrator, log *logger.Logger) *ContractHandler {
	return &ContractHandler{
		discovery:    disc,
		validator:    validator,
		orchestrator: orch,
		logger:       log,
	}
}

// List returns all discovered contracts
// GET /api/contracts
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	result := h.discovery.DiscoverAll(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// Get returns one contract by ID
// GET /api/contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.findContract(r)
	if !ok {
		writeError(w, http.StatusNotFound, "contract not found")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Validation returns the current fulfillment state of one contract
// GET /api/contracts/{id}/validation
func (h *ContractHandler) Validation(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.findContract(r)
	if !ok {
		writeError(w, http.StatusNotFound, "contract not found")
		return
	}

	outcome := h.validator.Validate(r.Context(), contract)
	writeJSON(w, http.StatusOK, outcome)
}

// Refresh runs the full pipeline. Contract failures are reported in the
// batch result, not as HTTP errors; skip_errors=false aborts on the first.
// POST /api/refresh?skip_errors=true
func (h *ContractHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	skipErrors := r.URL.Query().Get("skip_errors") != "false"

	batch, err := h.orchestrator.RefreshAll(r.Context(), skipErrors)
	if err != nil {
		h.logger.WithError(err).Warn("Pipeline run aborted")
	}

	writeJSON(w, http.StatusOK, batch)
}

// RefreshOne refreshes a single contract
// POST /api/refresh/{id}
func (h *ContractHandler) RefreshOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.orchestrator.RefreshOne(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ContractHandler) findContract(r *http.Request) (*contracts.DataContract, bool) {
	id := mux.Vars(r)["id"]
	result := h.discovery.DiscoverAll(r.Context())
	return result.Contract(id)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
