package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// AnswerRequest is the input of POST /v1/answer.
type AnswerRequest struct {
	Body struct {
		Question string `json:"question" doc:"Question to answer from the indexed documents"`
		TopK     int    `json:"topK,omitempty" minimum:"0" maximum:"100" doc:"Number of chunks to retrieve (default from configuration)"`
	}
}

// AnswerResponse is the output of POST /v1/answer. Backend failures still
// answer 200 with the error field set; a blank question answers 400.
type AnswerResponse struct {
	Status int
	Body   domain.Answer
}

// StatusResponse is the output of GET /v1/status.
type StatusResponse struct {
	Body domain.Status
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{Status: "ok"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "answer",
		Method:      http.MethodPost,
		Path:        "/v1/answer",
		Summary:     "Answer a question",
		Description: "Retrieves the most similar chunks and generates an answer citing them.",
		Tags:        []string{"query"},
	}, s.handleAnswer)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/v1/status",
		Summary:     "Pipeline status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

func (s *Server) handleAnswer(ctx context.Context, input *AnswerRequest) (*AnswerResponse, error) {
	answer := s.manager.Answer(ctx, input.Body.Question, input.Body.TopK)
	if answer.Sources == nil {
		answer.Sources = []domain.SourceRef{}
	}

	status := http.StatusOK
	if strings.TrimSpace(input.Body.Question) == "" {
		status = http.StatusBadRequest
	}
	return &AnswerResponse{Status: status, Body: answer}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*StatusResponse, error) {
	status, err := s.manager.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("status unavailable", err)
	}
	return &StatusResponse{Body: status}, nil
}
