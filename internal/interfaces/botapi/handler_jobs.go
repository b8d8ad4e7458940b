package botapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

// pollCycleRequest scopes a manually triggered detection pass. An empty or
// absent body runs the whole fleet; chat_id narrows it to one subscriber.
type pollCycleRequest struct {
	ChatID int64 `json:"chat_id" validate:"omitempty,gt=0"`
}

// RunPollCycleJob executes one detection cycle on demand. External cron is
// the intended caller; the route is guarded by RequireInternalJobToken.
func (h *Handler) RunPollCycleJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "botapi.Handler.RunPollCycleJob")
	defer span.End()

	req, err := decodePollCycleRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var report usecase.CycleReport
	if req.ChatID > 0 {
		report, err = h.detector.RunUserCycle(ctx, req.ChatID)
	} else {
		report, err = h.detector.RunCycle(ctx)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "run poll cycle job failed", "chat_id", req.ChatID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func decodePollCycleRequest(r *http.Request) (pollCycleRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req pollCycleRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return pollCycleRequest{}, nil
		}
		return pollCycleRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
