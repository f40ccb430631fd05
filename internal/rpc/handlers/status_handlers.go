package handlers

import (
	"net/http"
)

type StatusResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Chains  []uint64 `json:"chains"`
}

func StatusGetHandler(r *http.Request, version string, chains []uint64) (StatusResponse, error) {
	if chains == nil {
		chains = []uint64{}
	}
	return StatusResponse{Status: "OK", Version: version, Chains: chains}, nil
}
