package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inkboard/inkboard/internal/auth"
	"github.com/inkboard/inkboard/internal/collab"
	"github.com/inkboard/inkboard/internal/config"
	mw "github.com/inkboard/inkboard/internal/middleware"
	"github.com/inkboard/inkboard/internal/store/postgres"
	"github.com/inkboard/inkboard/internal/typeid"
)

// snapshotSource is the read side of postgres.SnapshotRepo.
type snapshotSource interface {
	Latest(ctx context.Context, boardID string) (postgres.Snapshot, error)
}

func newRouter(ctx context.Context, cfg *config.Config, hub *collab.Hub, validator *auth.Validator, snapshots *postgres.SnapshotRepo) http.Handler {
	var source snapshotSource
	if snapshots != nil {
		source = snapshots
	}
	return routes(ctx, cfg, hub, validator, source)
}

func routes(ctx context.Context, cfg *config.Config, hub *collab.Hub, validator *auth.Validator, snapshots snapshotSource) *mux.Router {
	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mw.RateLimitByIP(ctx, 10, 20))
	api.Use(validator.Middleware)

	api.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"id":          auth.UserIDFromContext(r.Context()),
			"displayName": auth.DisplayNameFromContext(r.Context()),
		})
	}).Methods("GET")
	api.HandleFunc("/boards/{boardId}/snapshots/latest", func(w http.ResponseWriter, r *http.Request) {
		handleLatestSnapshot(w, r, snapshots)
	}).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, validator)
	})

	return r
}

// validBoardID accepts the playground board and any board typeid.
func validBoardID(boardID string) bool {
	if boardID == collab.PlaygroundBoardID {
		return true
	}
	return typeid.Validate(boardID, typeid.PrefixBoard) == nil
}

func handleLatestSnapshot(w http.ResponseWriter, r *http.Request, snapshots snapshotSource) {
	boardID := mux.Vars(r)["boardId"]
	if !validBoardID(boardID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid board id"})
		return
	}
	if snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "persistence is disabled"})
		return
	}

	snap, err := snapshots.Latest(r.Context(), boardID)
	if errors.Is(err, postgres.ErrNoSnapshot) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot"})
		return
	}
	if err != nil {
		slog.Error("latest snapshot", "board", boardID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, validator *auth.Validator) {
	boardID := mux.Vars(r)["boardId"]
	if !validBoardID(boardID) {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	var id collab.Identity
	// Playground board allows anonymous access
	if boardID == collab.PlaygroundBoardID {
		id = collab.Identity{UserID: "anon-" + uuid.New().String()[:8], DisplayName: "Anonymous"}
	} else {
		token, ok := auth.TokenFromRequest(r)
		if !ok {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := validator.Validate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		id = collab.Identity{UserID: claims.Subject, DisplayName: claims.Name}
		if id.DisplayName == "" {
			id.DisplayName = claims.Subject
		}
	}

	hub.Serve(w, r, boardID, id)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
