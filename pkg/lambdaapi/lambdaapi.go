// Package lambdaapi implements the function handlers: analyze one stored
// source object, and derive suggestions from inline text.
package lambdaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"

	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// Handler names selected by GITRADAR_LAMBDA_HANDLER.
const (
	HandlerAnalyze = "analyze"
	HandlerSuggest = "suggest"
)

// ErrUnknownHandler is returned for an unsupported handler name.
var ErrUnknownHandler = errors.New("unknown lambda handler")

// AnalyzeEvent asks for the analysis of one stored object.
type AnalyzeEvent struct {
	RepoName string `json:"repo_name" validate:"required"`
	S3Key    string `json:"s3_key"    validate:"required"`
}

// SuggestEvent carries the text to derive suggestions from.
type SuggestEvent struct {
	ContextText string `json:"context_text" validate:"required"`
}

// errorBody is the body of every non-200 response.
type errorBody struct {
	Error string `json:"error"`
}

var eventValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

// validateEvent turns validator failures into one readable message.
func validateEvent(ev any) error {
	err := eventValidate.Struct(ev)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}

	return errors.New(strings.Join(msgs, ", "))
}

// Handlers serves function invocations.
type Handlers struct {
	engine  *engine.Engine
	store   storage.BlobStore
	sink    storage.ReportSink
	codec   storage.Codec
	logger  *slog.Logger
	metrics *observability.REDMetrics
}

// Deps holds the handler collaborators. Store is required by Analyze only.
type Deps struct {
	Engine  *engine.Engine
	Store   storage.BlobStore
	Sink    storage.ReportSink
	Codec   storage.Codec
	Logger  *slog.Logger
	Metrics *observability.REDMetrics
}

// New creates the handlers.
func New(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handlers{
		engine:  deps.Engine,
		store:   deps.Store,
		sink:    deps.Sink,
		codec:   deps.Codec,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

// Analyze fetches the object, analyzes it, stores the report next to the
// repository results and upserts it into the sink.
func (h *Handlers) Analyze(ctx context.Context, ev AnalyzeEvent) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	resp := h.analyze(ctx, ev)
	h.metrics.RecordRequest(ctx, "lambda."+HandlerAnalyze, statusLabel(resp.StatusCode), time.Since(start))

	return resp, nil
}

func (h *Handlers) analyze(ctx context.Context, ev AnalyzeEvent) events.APIGatewayProxyResponse {
	err := validateEvent(ev)
	if err != nil {
		return errorResponse(http.StatusBadRequest, err)
	}

	if h.store == nil {
		return errorResponse(http.StatusInternalServerError, storage.ErrNoBlobStore)
	}

	h.logger.InfoContext(ctx, "fetching unit", "repo", ev.RepoName, "unit", ev.S3Key)

	data, err := h.store.Get(ctx, ev.S3Key)
	if err != nil {
		h.logger.ErrorContext(ctx, "fetch failed", "unit", ev.S3Key, "error", err)

		return errorResponse(http.StatusInternalServerError, err)
	}

	rep, err := h.engine.AnalyzeUnit(ctx, ev.S3Key, string(data), "")

	switch {
	case errors.Is(err, source.ErrParse):
		return errorResponse(http.StatusUnprocessableEntity, err)
	case err != nil && !errors.Is(err, engine.ErrAnalysisIncomplete):
		return errorResponse(http.StatusInternalServerError, err)
	}

	rep.Repo = ev.RepoName

	payload, err := h.codec.Encode(rep)
	if err == nil {
		err = h.store.Put(ctx, storage.RepoMetricsKey(ev.RepoName), payload)
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "store report failed", "repo", ev.RepoName, "error", err)

		return errorResponse(http.StatusInternalServerError, err)
	}

	if h.sink != nil {
		err = h.sink.PutMetrics(ctx, ev.RepoName, rep)
		if err != nil {
			h.logger.ErrorContext(ctx, "sink write failed", "repo", ev.RepoName, "unit", ev.S3Key, "error", err)

			return errorResponse(http.StatusInternalServerError, err)
		}
	}

	return jsonResponse(http.StatusOK, rep)
}

// Suggest answers {"suggestions": [...]} for the event text.
func (h *Handlers) Suggest(ctx context.Context, ev SuggestEvent) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	resp := h.suggest(ctx, ev)
	h.metrics.RecordRequest(ctx, "lambda."+HandlerSuggest, statusLabel(resp.StatusCode), time.Since(start))

	return resp, nil
}

func (h *Handlers) suggest(ctx context.Context, ev SuggestEvent) events.APIGatewayProxyResponse {
	err := validateEvent(ev)
	if err != nil {
		return errorResponse(http.StatusBadRequest, err)
	}

	set, err := h.engine.GenerateSuggestions(ctx, ev.ContextText)

	switch {
	case errors.Is(err, suggest.ErrInvalidInput):
		return errorResponse(http.StatusBadRequest, err)
	case err != nil:
		return errorResponse(http.StatusInternalServerError, err)
	}

	if set == nil {
		set = suggest.Set{}
	}

	return jsonResponse(http.StatusOK, struct {
		Suggestions suggest.Set `json:"suggestions"`
	}{Suggestions: set})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, fmt.Errorf("encode response: %w", err))
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func errorResponse(status int, err error) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorBody{Error: err.Error()})

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func statusLabel(code int) string {
	if code >= http.StatusBadRequest {
		return "error"
	}

	return "ok"
}

// Handler returns the invocation handler registered under name, for
// lambda.Start.
func (h *Handlers) Handler(name string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case HandlerAnalyze, "":
		return h.Analyze, nil
	case HandlerSuggest:
		return h.Suggest, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, name)
	}
}
