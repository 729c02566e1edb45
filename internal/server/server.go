package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/internal/config"
	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/output"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	engine        *commission.Engine
	source        store.Source
	maxUploadSize int64
	version       string
}

type evaluateOptions struct {
	AsOf      string
	DriftOnly bool
}

// errNoSource is returned by source-backed endpoints when the server was
// started without a snapshot source.
var errNoSource = errors.New("no snapshot source configured")

// NewHandler constructs the HTTP handler that serves the reconciliation API.
// source may be nil, in which case only the upload and editor endpoints work.
func NewHandler(logger *zap.Logger, source store.Source, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		engine:        commission.NewEngine(logger),
		source:        source,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}

	r := mux.NewRouter()

	// Evaluate an uploaded snapshot file
	r.HandleFunc("/api/evaluate", h.handleEvaluate).Methods(http.MethodPost)

	// Evaluate a snapshot edited in the browser
	r.HandleFunc("/api/editor/evaluate", h.handleEvaluateEditor).Methods(http.MethodPost)

	// Config serialization endpoint for editor downloads
	r.HandleFunc("/api/editor/export", h.handleConfigExport).Methods(http.MethodPost)

	// Reports over the configured source
	r.HandleFunc("/api/report", h.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/reps/{rep}", h.handleRep).Methods(http.MethodGet)
	r.HandleFunc("/api/drift", h.handleDrift).Methods(http.MethodGet)
	r.HandleFunc("/api/deals/{id}/candidates", h.handleCandidates).Methods(http.MethodGet)
	r.HandleFunc("/api/history", h.handleHistory).Methods(http.MethodGet)

	// Version endpoint for UI metadata
	r.HandleFunc("/api/version", h.handleVersion).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", constants.RequestIDHeader},
		ExposedHeaders: []string{constants.RequestIDHeader},
	}).Handler(h.requestID(r))
}

// requestID tags every request with an X-Request-ID, keeping a valid one
// supplied by the client.
func (h *handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(constants.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(constants.RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)

		h.logger.Debug("request served",
			zap.String("op", "server.requestID"),
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type evaluateResponse struct {
	Report     output.ReportView      `json:"report"`
	CSV        string                 `json:"csv"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config,omitempty"`
	ConfigYAML string                 `json:"configYaml,omitempty"`
}

type candidatesResponse struct {
	AsOf        string            `json:"asOf"`
	Deal        output.DealView   `json:"deal"`
	Candidates  []output.RuleView `json:"candidates"`
	MatchedRule *output.RuleView  `json:"matchedRule"`
}

type historyResponse struct {
	Reports []output.ReportView `json:"reports"`
}

func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvaluate"
	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	opts := evaluateOptions{
		AsOf:      strings.TrimSpace(r.FormValue("asOf")),
		DriftOnly: coerceBool(r.FormValue("driftOnly")),
	}
	h.runEvaluation(r.Context(), w, configBytes, configMap, start, op, opts)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleEvaluateEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvaluateEditor"
	start := time.Now()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", op)
			return
		}
		configPayload = cfgMap
	}

	opts := evaluateOptions{}
	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", op)
			return
		}
		if asOf, ok := optsMap["asOf"].(string); ok {
			opts.AsOf = strings.TrimSpace(asOf)
		}
		if driftOnly, ok := optsMap["driftOnly"]; ok {
			opts.DriftOnly = coerceBool(driftOnly)
		}
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse configuration: %v", err), op)
		return
	}

	h.runEvaluation(r.Context(), w, configBytes, configMap, start, op, opts)
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// exportKeyOrder lists the sections that lead an exported file.
var exportKeyOrder = []string{"logging", "output", "evaluation", "source", "rules", "deals"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range exportKeyOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	return yaml.Marshal(orderedConfig{items: items})
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) runEvaluation(ctx context.Context, w http.ResponseWriter, configBytes []byte, configMap map[string]interface{}, start time.Time, op string, opts evaluateOptions) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()

	if opts.AsOf != "" {
		cfg.Evaluation.AsOf = opts.AsOf
	}
	asOf, err := cfg.AsOf(time.Now())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	period, err := cfg.Period()
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	snapshot := cfg.Snapshot()
	rules, err := snapshot.Rules(ctx)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	deals, err := snapshot.Deals(ctx, period)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	report := h.engine.Evaluate(deals, rules, asOf)
	driftOnly := opts.DriftOnly || cfg.Evaluation.DriftOnly
	view := output.NewReportView(report)
	if driftOnly {
		view.DealDetails = view.DriftDeals
	}

	elapsed := time.Since(start)

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	response := evaluateResponse{
		Report:     view,
		CSV:        output.CsvString(report, driftOnly),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}

	h.logger.Info("snapshot evaluated",
		zap.String("op", op),
		zap.String("asOf", datetime.FormatDate(asOf)),
		zap.Int("deals", report.Totals.Deals),
		zap.Int("drift", report.Totals.DriftCount),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

// sourceReport evaluates the configured source at the request's asOf and
// close-date period. It writes the error response itself and returns false
// on failure.
func (h *handler) sourceReport(w http.ResponseWriter, r *http.Request, op string) (commission.Report, []commission.Rule, bool) {
	asOf, err := queryAsOf(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return commission.Report{}, nil, false
	}
	period, err := queryPeriod(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return commission.Report{}, nil, false
	}

	rules, deals, err := h.loadSnapshot(r.Context(), period)
	if err != nil {
		h.respondSourceError(w, err, op)
		return commission.Report{}, nil, false
	}

	return h.engine.Evaluate(deals, rules, asOf), rules, true
}

func (h *handler) loadSnapshot(ctx context.Context, period store.Period) ([]commission.Rule, []commission.Deal, error) {
	if h.source == nil {
		return nil, nil, errNoSource
	}
	rules, err := h.source.Rules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}
	deals, err := h.source.Deals(ctx, period)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deals: %w", err)
	}
	return rules, deals, nil
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.sourceReport(w, r, "server.handleReport")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, output.NewReportView(report))
}

func (h *handler) handleRep(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRep"
	report, _, ok := h.sourceReport(w, r, op)
	if !ok {
		return
	}

	name := mux.Vars(r)["rep"]
	summary := commission.FindRep(report.RepSummaries, name)
	if summary == nil {
		h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("no deals for rep %q", name), op)
		return
	}
	h.writeJSON(w, http.StatusOK, output.NewRepView(*summary))
}

func (h *handler) handleDrift(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.sourceReport(w, r, "server.handleDrift")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, output.NewDealViews(report.DriftDeals))
}

func (h *handler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCandidates"
	report, rules, ok := h.sourceReport(w, r, op)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	var detail *commission.DealDetail
	for i := range report.DealDetails {
		if report.DealDetails[i].Deal.ID == id {
			detail = &report.DealDetails[i]
			break
		}
	}
	if detail == nil {
		h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("deal %q not found", id), op)
		return
	}

	h.writeJSON(w, http.StatusOK, candidatesResponse{
		AsOf:        datetime.FormatDate(report.AsOf),
		Deal:        output.NewDealViews([]commission.DealDetail{*detail})[0],
		Candidates:  output.NewRuleViews(commission.Candidates(detail.Deal, rules, report.AsOf)),
		MatchedRule: output.NewRuleView(detail.MatchedRule),
	})
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleHistory"

	values := r.URL.Query()["asOf"]
	if len(values) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "at least one asOf date is required", op)
		return
	}
	asOfs := make([]time.Time, 0, len(values))
	for _, value := range values {
		asOf, err := validation.ParseAsOf(value)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		asOfs = append(asOfs, asOf)
	}
	period, err := queryPeriod(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	rules, deals, err := h.loadSnapshot(r.Context(), period)
	if err != nil {
		h.respondSourceError(w, err, op)
		return
	}

	reports, err := h.engine.EvaluateHistory(r.Context(), deals, rules, asOfs)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("history evaluation interrupted: %v", err), op)
		return
	}

	views := make([]output.ReportView, 0, len(reports))
	for _, report := range reports {
		views = append(views, output.NewReportView(report))
	}
	h.writeJSON(w, http.StatusOK, historyResponse{Reports: views})
}

// queryAsOf reads the asOf query parameter, defaulting to today.
func queryAsOf(r *http.Request) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get("asOf"))
	if value == "" {
		return datetime.Today(), nil
	}
	return validation.ParseAsOf(value)
}

func queryPeriod(r *http.Request) (store.Period, error) {
	var period store.Period
	query := r.URL.Query()
	if from := strings.TrimSpace(query.Get("from")); from != "" {
		t, err := validation.ParseAsOf(from)
		if err != nil {
			return store.Period{}, fmt.Errorf("from: %w", err)
		}
		period.From = t
	}
	if to := strings.TrimSpace(query.Get("to")); to != "" {
		t, err := validation.ParseAsOf(to)
		if err != nil {
			return store.Period{}, fmt.Errorf("to: %w", err)
		}
		period.To = t
	}
	return period, nil
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondSourceError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, errNoSource) {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, err.Error(), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusBadGateway, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("requestId", w.Header().Get(constants.RequestIDHeader)),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
