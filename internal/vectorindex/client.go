// Package vectorindex talks to a Qdrant collection over its REST API.
// Each catalog exercise owns exactly one point whose id is derived from the exercise id.
package vectorindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"alcyxob/workout-recommender/internal/logger"
)

// Payload keys written on every point.
const (
	PayloadExerciseID = "exercise_id"
	PayloadName       = "name"
	PayloadCategory   = "category"
	PayloadEquipment  = "equipment"
)

const (
	defaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 4 << 20
)

var pointIDNamespace = uuid.MustParse("6f1c7a52-3c4e-4f0d-9a8e-2b7d5e0c9a41")

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorDim  int
	Timeout    time.Duration
}

func (c Config) validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return opErr("config", OperationErrorValidation, "qdrant url is required", nil)
	}
	if strings.TrimSpace(c.Collection) == "" {
		return opErr("config", OperationErrorValidation, "qdrant collection is required", nil)
	}
	if c.VectorDim <= 0 {
		return opErr("config", OperationErrorValidation, "vector dimension must be positive", nil)
	}
	return nil
}

// Match is one search hit.
type Match struct {
	ExerciseID string
	PointID    string
	Score      float64
}

// Client is a Qdrant REST client scoped to one collection.
type Client struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewClient validates cfg and builds a client. It does not contact the server.
func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		log:     log.With("service", "QdrantIndex", "collection", cfg.Collection),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// PointID returns the deterministic point id for an exercise.
// Re-upserting the same exercise overwrites its point instead of duplicating it.
func PointID(exerciseID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(exerciseID)).String()
}

// EnsureCollection creates the collection with cosine distance.
// An existing collection is not an error.
func (c *Client) EnsureCollection(ctx context.Context) error {
	const op = "create_collection"
	req := map[string]any{
		"vectors": map[string]any{
			"size":     c.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath(""), req, nil)
	if err == nil {
		c.log.Info("vector collection created", "vector_dim", c.cfg.VectorDim)
		return nil
	}
	if isAlreadyExists(err) {
		c.log.Debug("vector collection already exists")
		return nil
	}
	return err
}

func isAlreadyExists(err error) bool {
	var oe *OperationError
	if !errors.As(err, &oe) {
		return false
	}
	return oe.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(oe.Message), "already exists")
}

// Upsert writes the vector for exerciseID and returns its point id.
// payload is copied; the exercise id key is always set.
func (c *Client) Upsert(ctx context.Context, exerciseID string, vector []float32, payload map[string]any) (string, error) {
	const op = "upsert"
	exerciseID = strings.TrimSpace(exerciseID)
	if exerciseID == "" {
		return "", opErr(op, OperationErrorValidation, "exercise id is required", nil)
	}
	if err := c.checkVector(op, vector); err != nil {
		return "", err
	}

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body[PayloadExerciseID] = exerciseID

	pointID := PointID(exerciseID)
	req := map[string]any{
		"points": []map[string]any{{
			"id":      pointID,
			"vector":  vector,
			"payload": body,
		}},
	}
	if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/points?wait=true"), req, nil); err != nil {
		return "", err
	}
	return pointID, nil
}

// Search returns up to limit hits scoring at least scoreThreshold, best first.
// filter is a map of payload key to required value; nil means no filter.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filter map[string]any) ([]Match, error) {
	const op = "search"
	if err := c.checkVector(op, vector); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
		"with_vector":     false,
	}
	if f := mustMatchFilter(filter); f != nil {
		req["filter"] = f
	}

	var items []searchResultItem
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/search"), req, &items); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(items))
	for _, item := range items {
		exerciseID, _ := item.Payload[PayloadExerciseID].(string)
		exerciseID = strings.TrimSpace(exerciseID)
		if exerciseID == "" {
			c.log.Warn("search hit without exercise id", "point_id", decodePointID(item.ID))
			continue
		}
		out = append(out, Match{
			ExerciseID: exerciseID,
			PointID:    decodePointID(item.ID),
			Score:      item.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ExerciseID < out[j].ExerciseID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// Delete removes a point by id. Deleting a missing point succeeds.
func (c *Client) Delete(ctx context.Context, pointID string) error {
	const op = "delete"
	pointID = strings.TrimSpace(pointID)
	if pointID == "" {
		return nil
	}
	req := map[string]any{"points": []string{pointID}}
	return c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/delete?wait=true"), req, nil)
}

// DeleteByExerciseID removes every point whose payload references exerciseID.
func (c *Client) DeleteByExerciseID(ctx context.Context, exerciseID string) error {
	const op = "delete_by_exercise"
	exerciseID = strings.TrimSpace(exerciseID)
	if exerciseID == "" {
		return opErr(op, OperationErrorValidation, "exercise id is required", nil)
	}
	req := map[string]any{"filter": mustMatchFilter(map[string]any{PayloadExerciseID: exerciseID})}
	return c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/delete?wait=true"), req, nil)
}

func (c *Client) checkVector(op string, vector []float32) error {
	if len(vector) == 0 {
		return opErr(op, OperationErrorValidation, "vector is required", nil)
	}
	if len(vector) != c.cfg.VectorDim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", c.cfg.VectorDim, len(vector)), nil)
	}
	return nil
}

// mustMatchFilter builds {"must":[{"key":k,"match":{"value":v}}...]} with keys sorted.
func mustMatchFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	must := make([]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": filter[k]},
		})
	}
	return map[string]any{"must": must}
}

func (c *Client) collectionPath(suffix string) string {
	return "/collections/" + c.cfg.Collection + suffix
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
