package rag_http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"docqa-orchestrator/internal/infra/logger"
	"docqa-orchestrator/internal/usecase"
)

// Handler exposes the answer and draft pipelines over HTTP.
type Handler struct {
	answerUsecase usecase.AnswerUsecase
	draftUsecase  usecase.DraftUsecase
	logger        *slog.Logger
}

func NewHandler(answerUsecase usecase.AnswerUsecase, draftUsecase usecase.DraftUsecase, logger *slog.Logger) *Handler {
	return &Handler{
		answerUsecase: answerUsecase,
		draftUsecase:  draftUsecase,
		logger:        logger,
	}
}

// Register attaches the API routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/answer", h.Answer)
	e.POST("/v1/answer/stream", h.AnswerStream)
	e.POST("/v1/draft", h.Draft)
}

// requestContext propagates the echo request ID into the context so
// pipeline logs can be correlated with the HTTP access log.
func requestContext(ctx echo.Context) context.Context {
	reqCtx := ctx.Request().Context()
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		reqCtx = logger.WithRequestID(reqCtx, id)
	}
	return reqCtx
}

// AnswerRequest is the request body for both answer endpoints.
type AnswerRequest struct {
	Query        string   `json:"query"`
	DocumentRefs []string `json:"document_refs,omitempty"`
	Locale       string   `json:"locale,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
}

// CitationDTO is one resolved reference in a response.
type CitationDTO struct {
	Number      int    `json:"number"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url,omitempty"`
}

// AnswerResponse is the response body of POST /v1/answer.
type AnswerResponse struct {
	Answer    string        `json:"answer"`
	Citations []CitationDTO `json:"citations"`
	Sources   []string      `json:"sources"`
	RequestID string        `json:"request_id"`
}

// Answer a question grounded on the scoped documents.
// (POST /v1/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.answerUsecase.Execute(requestContext(ctx), usecase.AnswerInput{
		Query:        req.Query,
		DocumentRefs: req.DocumentRefs,
		Locale:       req.Locale,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return h.internalError(ctx, "answer_failed", req.Locale, err)
	}

	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer:    output.Answer,
		Citations: toCitationDTOs(output.Citations),
		Sources:   emptyIfNil(output.Sources),
		RequestID: output.RequestID,
	})
}

// AnswerStream answers a question with server-sent events: one "meta"
// event carrying the evidence, "delta" events with answer text as it
// arrives, and a final "done" event with the full response.
// (POST /v1/answer/stream)
func (h *Handler) AnswerStream(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	events := h.answerUsecase.Stream(requestContext(ctx), usecase.AnswerInput{
		Query:        req.Query,
		DocumentRefs: req.DocumentRefs,
		Locale:       req.Locale,
		MaxTokens:    req.MaxTokens,
	})

	for event := range events {
		if err := writeSSE(resp, event); err != nil {
			return err
		}
		resp.Flush()
	}
	return nil
}

// DraftRequest is the request body of POST /v1/draft.
type DraftRequest struct {
	Topic        string   `json:"topic"`
	DocumentRefs []string `json:"document_refs"`
	Locale       string   `json:"locale,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
}

// DraftResponse is the response body of POST /v1/draft.
type DraftResponse struct {
	Document  string        `json:"document"`
	Citations []CitationDTO `json:"citations"`
	Sources   []string      `json:"sources"`
	RequestID string        `json:"request_id"`
}

// Draft a structured document about a topic from the scoped documents.
// (POST /v1/draft)
func (h *Handler) Draft(ctx echo.Context) error {
	var req DraftRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Topic == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "topic is required"})
	}
	if len(req.DocumentRefs) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "document_refs is required"})
	}

	output, err := h.draftUsecase.Execute(requestContext(ctx), usecase.DraftInput{
		Topic:        req.Topic,
		DocumentRefs: req.DocumentRefs,
		Locale:       req.Locale,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return h.internalError(ctx, "draft_failed", req.Locale, err)
	}

	return ctx.JSON(http.StatusOK, DraftResponse{
		Document:  output.Document,
		Citations: toCitationDTOs(output.Citations),
		Sources:   emptyIfNil(output.Sources),
		RequestID: output.RequestID,
	})
}

// internalError converts a terminal pipeline failure into a localized
// response. Provider detail embedded in the error is logged for
// operators and never reaches the client.
func (h *Handler) internalError(ctx echo.Context, event, locale string, err error) error {
	logger.FromContext(requestContext(ctx), h.logger).Error(event,
		slog.String("error", err.Error()))
	return ctx.JSON(http.StatusInternalServerError, map[string]string{
		"error": usecase.ConfigErrorAnswer(locale),
	})
}

// streamMetaDTO mirrors usecase.StreamMeta for the wire.
type streamMetaDTO struct {
	RequestID string        `json:"request_id"`
	Sources   []string      `json:"sources"`
	Citations []CitationDTO `json:"citations"`
}

func writeSSE(w http.ResponseWriter, event usecase.StreamEvent) error {
	payload, err := marshalEventPayload(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
	return err
}

func marshalEventPayload(event usecase.StreamEvent) ([]byte, error) {
	switch p := event.Payload.(type) {
	case usecase.StreamMeta:
		return json.Marshal(streamMetaDTO{
			RequestID: p.RequestID,
			Sources:   emptyIfNil(p.Sources),
			Citations: toCitationDTOs(p.Citations),
		})
	case *usecase.AnswerOutput:
		return json.Marshal(AnswerResponse{
			Answer:    p.Answer,
			Citations: toCitationDTOs(p.Citations),
			Sources:   emptyIfNil(p.Sources),
			RequestID: p.RequestID,
		})
	default:
		return json.Marshal(event.Payload)
	}
}

func toCitationDTOs(citations []usecase.CitationEntry) []CitationDTO {
	dtos := make([]CitationDTO, 0, len(citations))
	for _, cite := range citations {
		dtos = append(dtos, CitationDTO{
			Number:      cite.Number,
			DisplayName: cite.DisplayName,
			URL:         cite.URL,
		})
	}
	return dtos
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
