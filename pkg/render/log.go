/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package render

import (
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

// Log emits one structured event per record plus a summary event. Meant
// for headless runs where the JSON log stream is the interface.
func Log(log logger.Logger, rep *report.Report) {
	for _, rec := range rep.Records() {
		ev := log.Info()
		if rec.Status == models.StatusFailure || rec.Status == models.StatusError {
			ev = log.Warn()
		}

		ev.Str("run_id", rep.RunID()).
			Str("device", rec.Device).
			Str("test", rec.Test).
			Str("status", string(rec.Status)).
			Str("message", rec.Message).
			Dur("duration", rec.Duration()).
			Int("attempt", rec.Attempt).
			Msg("Test result")
	}

	summary := rep.Summary()

	log.Info().
		Str("run_id", summary.RunID).
		Int("total", summary.Total).
		Int("success", summary.ByStatus[models.StatusSuccess]).
		Int("failure", summary.ByStatus[models.StatusFailure]).
		Int("error", summary.ByStatus[models.StatusError]).
		Int("skipped", summary.ByStatus[models.StatusSkipped]).
		Bool("clean", summary.Clean).
		Dur("duration", summary.Duration).
		Msg("Run finished")
}
