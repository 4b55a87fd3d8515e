// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/serializer"
)

// Source supplies the aggregated scrape configuration served on
// /v1/aggregate. Implemented by aggregate.Consumer.
type Source interface {
	Jobs(ctx context.Context) ([]scrape.Job, error)
	Alerts(ctx context.Context) (map[string]rules.RuleFile, error)
}

// AggregateResponse is the JSON body of /v1/aggregate.
type AggregateResponse struct {
	Jobs      []scrape.Job              `json:"jobs"`
	Alerts    map[string]rules.RuleFile `json:"alerts"`
	Timestamp time.Time                 `json:"timestamp"`
}

// handleAggregate handles GET /v1/aggregate
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	if s.source == nil {
		writeError(w, r, http.StatusServiceUnavailable, apperrors.ErrCodeInternal,
			"No aggregate source configured", false, nil)
		return
	}

	jobs, err := s.source.Jobs(r.Context())
	if err != nil {
		slog.Error("failed to collect scrape jobs", "error", err)
		writeError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternal,
			"Failed to collect scrape jobs", true, nil)
		return
	}

	alerts, err := s.source.Alerts(r.Context())
	if err != nil {
		slog.Error("failed to collect alert rules", "error", err)
		writeError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternal,
			"Failed to collect alert rules", true, nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, AggregateResponse{
		Jobs:      jobs,
		Alerts:    alerts,
		Timestamp: time.Now().UTC(),
	})
}
