package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bulkmeta/internal/report"
)

func (s *Server) registerNoticeRoutes() {
	register(s.api, huma.Operation{
		OperationID: "drainNotices",
		Method:      http.MethodGet,
		Path:        "/api/v1/notices",
		Summary:     "Pending notices",
		Description: "Returns and removes the run summaries queued for the current user. Each notice is delivered once.",
		Tags:        []string{"Notices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDrainNotices)
}

// NoticesResponse lists drained notices.
type NoticesResponse struct {
	Notices []report.Notice `json:"notices" doc:"Notices, oldest first"`
}

// NoticesOutput wraps the notices for Huma.
type NoticesOutput struct {
	Body NoticesResponse
}

func (s *Server) handleDrainNotices(ctx context.Context, _ *AuthenticatedInput) (*NoticesOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	notices, err := s.services.Bulk.Notices(ctx, user)
	if err != nil {
		return nil, err
	}
	return &NoticesOutput{Body: NoticesResponse{Notices: notices}}, nil
}
