package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BatchLimit is the maximum number of commands the remote store accepts
// in one batch call. This is an external constraint, not a tunable.
const BatchLimit = 50

// maxResponseSize caps how much of a batch response is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

// FieldKeys names the custom fields the remote store uses for this
// integration. The keys are portal-specific ("UF_CRM_..." identifiers)
// and come from configuration.
type FieldKeys struct {
	ProductAccessID   string
	ContactAccessID   string
	ContactProductIDs string
	SupplierFlag      string
	PriceRequest      string
	DeliveryDate      string
}

// Config holds the remote store connection and portal-specific settings.
type Config struct {
	// Endpoint is the decrypted inbound-webhook base URL.
	Endpoint string
	Timeout  time.Duration

	Fields FieldKeys

	// EntityTypeID is the smart-process type holding supplier
	// relationship records.
	EntityTypeID int64
	// DealCategoryID is the pipeline for purchase deals.
	DealCategoryID int64
	// ProductSectionID is where newly created products are filed.
	ProductSectionID int64
	// CatalogIBlockID is the catalog block for bridged catalog products.
	CatalogIBlockID int64
	// AssignedByID is the user that owns created deals and rows.
	AssignedByID int64

	// LineItemChunkSize and LineItemPause rate-limit line item creation.
	LineItemChunkSize int
	LineItemPause     time.Duration
}

func (c *Config) withDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.LineItemChunkSize <= 0 {
		c.LineItemChunkSize = 10
	}
	if c.LineItemPause <= 0 {
		c.LineItemPause = 500 * time.Millisecond
	}
}

// Client issues batched commands against the remote store's /batch
// endpoint. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
	tracer     trace.Tracer
}

// NewClient creates a gateway client for the given configuration.
func NewClient(cfg Config, log *zap.Logger) *Client {
	cfg.withDefaults()
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:    log.Named("bitrix"),
		tracer: otel.Tracer("bitrix"),
	}
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// batchBody is the request payload for one batch call. halt:0 tells the
// store to keep executing subsequent commands after one fails, which is
// what makes per-command error aggregation meaningful.
type batchBody struct {
	Halt int               `json:"halt"`
	Cmd  map[string]string `json:"cmd"`
}

// Batch executes all commands in the set, splitting them into chunks of
// at most BatchLimit and issuing one network call per chunk. Results are
// concatenated in chunk order; within a chunk they follow command
// insertion order, with list results flattened element by element.
//
// On a per-command failure the returned *CommandError still carries the
// results recovered from commands that succeeded.
func (c *Client) Batch(ctx context.Context, set *CommandSet) ([]json.RawMessage, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptyBatch
	}

	var all []json.RawMessage
	for _, chunk := range set.chunks(BatchLimit) {
		results, err := c.callChunk(ctx, set, chunk)
		if err != nil {
			if cmdErr, ok := err.(*CommandError); ok {
				cmdErr.Results = append(all, cmdErr.Results...)
			}
			return nil, err
		}
		all = append(all, results...)
	}
	return all, nil
}

func (c *Client) callChunk(ctx context.Context, set *CommandSet, names []string) ([]json.RawMessage, error) {
	batchID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "bitrix.batch",
		trace.WithAttributes(
			attribute.String("bitrix.batch_id", batchID),
			attribute.Int("bitrix.commands", len(names))))
	defer span.End()

	body := batchBody{Halt: 0, Cmd: make(map[string]string, len(names))}
	for _, name := range names {
		body.Cmd[name] = set.commands[name]
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("bitrix: encode batch body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("bitrix: create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("sending batch request",
		zap.String("batch_id", batchID), zap.Int("commands", len(names)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, &TransportError{Status: resp.StatusCode}
	}

	var envelope batchEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ProtocolError{Reason: "response is not valid JSON"}
	}
	if len(envelope.Result.Result) == 0 && len(envelope.Result.ResultError) == 0 {
		return nil, &ProtocolError{Reason: "response has no result envelope"}
	}

	// Recover successful command results in insertion order even when
	// some commands failed; the store evaluated all of them.
	var results []json.RawMessage
	for _, name := range names {
		value, ok := envelope.Result.Result[name]
		if !ok {
			continue
		}
		results = append(results, flattenResult(value)...)
	}

	if len(envelope.Result.ResultError) > 0 {
		cmdErr := &CommandError{
			Faults:  envelope.Result.ResultError,
			Results: results,
		}
		c.log.Warn("batch commands failed",
			zap.String("batch_id", batchID), zap.Int("failed", len(cmdErr.Faults)), zap.Error(cmdErr))
		span.SetStatus(codes.Error, cmdErr.Error())
		return nil, cmdErr
	}

	c.log.Debug("batch response", zap.Int("results", len(results)))
	return results, nil
}

// flattenResult normalizes one command's result value: list results are
// flattened element by element, entity envelopes ("items", "item",
// "element" and friends) are unwrapped, scalars pass through.
func flattenResult(value json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []json.RawMessage{trimmed}
		}
		return items
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return []json.RawMessage{trimmed}
		}
		for _, key := range []string{"items", "products", "productRows"} {
			if list, ok := wrapper[key]; ok {
				return flattenResult(list)
			}
		}
		for _, key := range []string{"item", "product", "element", "productRow"} {
			if entity, ok := wrapper[key]; ok {
				return []json.RawMessage{entity}
			}
		}
		return []json.RawMessage{trimmed}
	default:
		return []json.RawMessage{trimmed}
	}
}
