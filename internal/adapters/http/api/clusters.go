package api

import (
	"errors"
	"net/http"

	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/entities"
)

type clustersResponse struct {
	Entity   string                      `json:"entity"`
	Clusters []repository.ClusterSummary `json:"clusters"`
}

// handleGetClusters returns the latest snapshot's clusters for an entity.
func (s *Server) handleGetClusters(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	if entity == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing entity parameter"))
		return
	}
	clusters, err := s.deps.Clusters(entity)
	if err != nil {
		if errors.Is(err, entities.ErrUnknownEntity) {
			writeError(w, http.StatusNotFound, "unknown_entity", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if clusters == nil {
		clusters = []repository.ClusterSummary{}
	}
	writeJSON(w, http.StatusOK, clustersResponse{Entity: entity, Clusters: clusters})
}

type clusterResponse struct {
	Cluster repository.ClusterSummary `json:"cluster"`
	// Forwarded counts merge hops taken to resolve the requested id.
	Forwarded int `json:"forwarded,omitempty"`
}

// handleGetCluster returns one cluster by id, following merge forwarding
// pointers so retired ids from old HIRRecords stay resolvable.
func (s *Server) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	summary, hops, err := s.deps.Cluster(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, clusterResponse{Cluster: summary, Forwarded: hops})
}
