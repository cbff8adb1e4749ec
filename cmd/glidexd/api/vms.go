package api

import (
	"encoding/json"
	"net/http"

	"github.com/samber/lo"

	"github.com/onkernel/glidex/lib/vm"
)

func (s *Server) handleListVMs(w http.ResponseWriter, r *http.Request) {
	records := s.mgr.List()
	out := lo.Map(records, func(rec *vm.Record, _ int) VmResponse {
		return toVmResponse(rec)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateVM(w http.ResponseWriter, r *http.Request) {
	var req CreateVmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ApiError{Error: "bad_request", Message: "malformed JSON body"})
		return
	}

	if missing := firstMissingField(req); missing != "" {
		writeJSON(w, http.StatusUnprocessableEntity, ApiError{Error: "invalid_request", Message: "missing field: " + missing})
		return
	}

	cfg := vm.Config{
		VCPUCount:       req.VCPUCount,
		MemSizeMiB:      req.MemSizeMiB,
		KernelImagePath: req.KernelImagePath,
		RootfsPath:      req.RootfsPath,
		KernelArgs:      req.KernelArgs,
	}

	rec, err := s.mgr.Create(r.Context(), req.Name, cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVmResponse(rec))
}

func firstMissingField(req CreateVmRequest) string {
	switch {
	case req.Name == "":
		return "name"
	case req.VCPUCount <= 0:
		return "vcpu_count"
	case req.MemSizeMiB <= 0:
		return "mem_size_mib"
	case req.KernelImagePath == "":
		return "kernel_image_path"
	case req.RootfsPath == "":
		return "rootfs_path"
	default:
		return ""
	}
}
