package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/finx/internal/codec"
	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// CloudBackend is the networked multi-tenant adapter. It speaks a simple
// JSON protocol to the sync server; records travel as formatted field maps
// (the same rendering the portable export uses) so values round-trip
// exactly.
//
// Transport failures, timeouts, and 5xx responses surface as NetworkError;
// the local and demo backends are not expected to time out.
type CloudBackend struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     CascadePolicy
}

// CloudOpts configures the networked backend.
type CloudOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64
	Policy    CascadePolicy
}

// NewCloudBackend creates a cloud adapter for the given server.
func NewCloudBackend(opts CloudOpts) *CloudBackend {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CloudBackend{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		policy:     opts.Policy,
	}
}

func (b *CloudBackend) Name() string { return string(ModeCloud) }

// Init verifies the server is reachable.
func (b *CloudBackend) Init(ctx context.Context) error {
	resp, err := b.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return &NetworkError{Op: "init", Err: fmt.Errorf("health check returned status %d", resp.status)}
	}
	return nil
}

func (b *CloudBackend) Close() error { return nil }

func (b *CloudBackend) Entity(table string) (EntityRepository, error) {
	cfg, err := models.Config(table)
	if err != nil {
		return nil, wrapOp("entity", table, "", err)
	}
	return &cloudRepo{backend: b, cfg: cfg}, nil
}

// AdjustBalance delegates the delta to the server, which applies it
// atomically per account.
func (b *CloudBackend) AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error {
	path := fmt.Sprintf("/api/%s/%s/adjust?tenant=%s", models.TableAccounts, url.PathEscape(id), url.QueryEscape(tenant))
	body, _ := json.Marshal(map[string]string{"delta": delta.String()})

	resp, err := b.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}
	if resp.status == http.StatusNotFound {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, &RecordNotFoundError{Table: models.TableAccounts, ID: id})
	}
	if resp.status >= 300 {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, fmt.Errorf("server returned status %d", resp.status))
	}
	return nil
}

type cloudResponse struct {
	status int
	body   []byte
}

func (b *CloudBackend) do(ctx context.Context, method, path string, body []byte) (*cloudResponse, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: method + " " + path, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &NetworkError{Op: method + " " + path, Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
	}

	return &cloudResponse{status: resp.StatusCode, body: data}, nil
}

type cloudRepo struct {
	backend *CloudBackend
	cfg     models.ModelConfig
}

func (r *cloudRepo) tablePath(tenant string) string {
	return fmt.Sprintf("/api/%s?tenant=%s", r.cfg.Table, url.QueryEscape(tenant))
}

func (r *cloudRepo) recordPath(id, tenant string) string {
	return fmt.Sprintf("/api/%s/%s?tenant=%s", r.cfg.Table, url.PathEscape(id), url.QueryEscape(tenant))
}

func (r *cloudRepo) decodeOne(data []byte) (models.Row, error) {
	var formatted map[string]string
	if err := json.Unmarshal(data, &formatted); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return codec.RestoreRow(r.cfg, formatted)
}

func (r *cloudRepo) GetAll(ctx context.Context, tenant string) ([]models.Row, error) {
	resp, err := r.backend.do(ctx, http.MethodGet, r.tablePath(tenant), nil)
	if err != nil {
		return nil, wrapOp("getall", r.cfg.Table, tenant, err)
	}
	if resp.status != http.StatusOK {
		return nil, wrapOp("getall", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}

	var formatted []map[string]string
	if err := json.Unmarshal(resp.body, &formatted); err != nil {
		return nil, wrapOp("getall", r.cfg.Table, tenant, fmt.Errorf("failed to parse records: %w", err))
	}

	out := make([]models.Row, 0, len(formatted))
	for _, f := range formatted {
		row, err := codec.RestoreRow(r.cfg, f)
		if err != nil {
			return nil, wrapOp("getall", r.cfg.Table, tenant, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *cloudRepo) GetByID(ctx context.Context, id, tenant string) (models.Row, error) {
	resp, err := r.backend.do(ctx, http.MethodGet, r.recordPath(id, tenant), nil)
	if err != nil {
		return nil, wrapOp("get", r.cfg.Table, tenant, err)
	}
	if resp.status == http.StatusNotFound {
		return nil, wrapOp("get", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	if resp.status != http.StatusOK {
		return nil, wrapOp("get", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}

	row, err := r.decodeOne(resp.body)
	if err != nil {
		return nil, wrapOp("get", r.cfg.Table, tenant, err)
	}
	return row, nil
}

func (r *cloudRepo) Create(ctx context.Context, rec models.Row) (models.Row, error) {
	tenant := rec.String(models.FieldTenantID)

	// The server validates again, but the adapter contract requires the
	// same write-time guarantees as the embedded backends.
	if err := validateCreate(ctx, r.backend, r.cfg, rec); err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}

	formatted, err := codec.FormatRow(rec)
	if err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}
	body, _ := json.Marshal(formatted)

	resp, err := r.backend.do(ctx, http.MethodPost, r.tablePath(tenant), body)
	if err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}
	if resp.status == http.StatusConflict {
		return nil, wrapOp("create", r.cfg.Table, tenant, &DuplicateRecordError{
			Table: r.cfg.Table,
			Field: models.FieldID,
			Value: rec.String(models.FieldID),
		})
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusOK {
		return nil, wrapOp("create", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}

	row, err := r.decodeOne(resp.body)
	if err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}
	return row, nil
}

func (r *cloudRepo) Update(ctx context.Context, patch models.Row) (models.Row, error) {
	tenant := patch.String(models.FieldTenantID)
	id := patch.String(models.FieldID)

	if err := validateUpdate(ctx, r.backend, r.cfg, patch); err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}

	formatted, err := codec.FormatRow(patch)
	if err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}
	body, _ := json.Marshal(formatted)

	resp, err := r.backend.do(ctx, http.MethodPatch, r.recordPath(id, tenant), body)
	if err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}
	if resp.status == http.StatusNotFound {
		return nil, wrapOp("update", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	if resp.status != http.StatusOK {
		return nil, wrapOp("update", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}

	row, err := r.decodeOne(resp.body)
	if err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}
	return row, nil
}

func (r *cloudRepo) Delete(ctx context.Context, id, tenant, actor string) error {
	path := r.recordPath(id, tenant) + "&actor=" + url.QueryEscape(actor)
	if r.backend.policy == PolicyCascade {
		path += "&cascade=true"
	}

	resp, err := r.backend.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return wrapOp("delete", r.cfg.Table, tenant, err)
	}
	if resp.status == http.StatusNotFound {
		return wrapOp("delete", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	if resp.status >= 300 {
		return wrapOp("delete", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}
	return nil
}

func (r *cloudRepo) Restore(ctx context.Context, id, tenant, actor string) error {
	path := fmt.Sprintf("/api/%s/%s/restore?tenant=%s&actor=%s",
		r.cfg.Table, url.PathEscape(id), url.QueryEscape(tenant), url.QueryEscape(actor))

	resp, err := r.backend.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return wrapOp("restore", r.cfg.Table, tenant, err)
	}
	if resp.status == http.StatusNotFound {
		return wrapOp("restore", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	if resp.status >= 300 {
		return wrapOp("restore", r.cfg.Table, tenant, fmt.Errorf("server returned status %d", resp.status))
	}
	return nil
}
