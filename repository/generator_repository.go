package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"content-scheduler/config"
	"content-scheduler/domain"

	"golang.org/x/time/rate"
)

// generatorRepository talks to the content generation service over HTTP.
// A shared rate limiter paces all phase calls so concurrent pipeline runs
// cannot overwhelm the generator.
type generatorRepository struct {
	logger  *slog.Logger
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewGeneratorRepository creates a new generator client.
func NewGeneratorRepository(cfg config.GeneratorConfig, logger *slog.Logger) GeneratorRepository {
	return &generatorRepository{
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		baseURL: strings.TrimRight(cfg.Host, "/"),
	}
}

type researchRequest struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
}

type researchResponse struct {
	Research string `json:"research"`
}

type outlineRequest struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Research string   `json:"research"`
}

type outlineResponse struct {
	Outline string `json:"outline"`
}

type writeRequest struct {
	Outline  string `json:"outline"`
	Research string `json:"research"`
}

type writeResponse struct {
	Draft string `json:"draft"`
}

type imagesRequest struct {
	Draft string `json:"draft"`
}

type imagesResponse struct {
	ImageURLs []string `json:"image_urls"`
}

type reviewRequest struct {
	Content string `json:"content"`
}

type reviewResponse struct {
	Issues []string `json:"issues"`
}

type reviseRequest struct {
	Content string   `json:"content"`
	Issues  []string `json:"issues"`
}

type reviseResponse struct {
	Content string `json:"content"`
}

type seoAuditResponse struct {
	Metadata string `json:"metadata"`
}

func (r *generatorRepository) Research(ctx context.Context, topic string, keywords []string) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic cannot be empty")
	}

	var resp researchResponse
	if err := r.post(ctx, "/api/v1/research", researchRequest{Topic: topic, Keywords: keywords}, &resp); err != nil {
		return "", err
	}
	return resp.Research, nil
}

func (r *generatorRepository) Outline(ctx context.Context, title string, keywords []string, research string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("title cannot be empty")
	}

	var resp outlineResponse
	if err := r.post(ctx, "/api/v1/outline", outlineRequest{Title: title, Keywords: keywords, Research: research}, &resp); err != nil {
		return "", err
	}
	return resp.Outline, nil
}

func (r *generatorRepository) Write(ctx context.Context, outline, research string) (string, error) {
	if outline == "" {
		return "", fmt.Errorf("outline cannot be empty")
	}

	var resp writeResponse
	if err := r.post(ctx, "/api/v1/write", writeRequest{Outline: outline, Research: research}, &resp); err != nil {
		return "", err
	}
	return resp.Draft, nil
}

func (r *generatorRepository) SelectImages(ctx context.Context, draft string) ([]string, error) {
	if draft == "" {
		return nil, fmt.Errorf("draft cannot be empty")
	}

	var resp imagesResponse
	if err := r.post(ctx, "/api/v1/images", imagesRequest{Draft: draft}, &resp); err != nil {
		return nil, err
	}
	return resp.ImageURLs, nil
}

func (r *generatorRepository) QualityCheck(ctx context.Context, content string) ([]string, error) {
	if content == "" {
		return nil, fmt.Errorf("content cannot be empty")
	}

	var resp reviewResponse
	if err := r.post(ctx, "/api/v1/quality-check", reviewRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

func (r *generatorRepository) Validate(ctx context.Context, content string) ([]string, error) {
	if content == "" {
		return nil, fmt.Errorf("content cannot be empty")
	}

	var resp reviewResponse
	if err := r.post(ctx, "/api/v1/validate", reviewRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

func (r *generatorRepository) Revise(ctx context.Context, content string, issues []string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if len(issues) == 0 {
		return content, nil
	}

	var resp reviseResponse
	if err := r.post(ctx, "/api/v1/revise", reviseRequest{Content: content, Issues: issues}, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (r *generatorRepository) SEOAudit(ctx context.Context, content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}

	var resp seoAuditResponse
	if err := r.post(ctx, "/api/v1/seo-audit", reviewRequest{Content: content}, &resp); err != nil {
		return "", err
	}
	return resp.Metadata, nil
}

func (r *generatorRepository) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrGeneratorUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", domain.ErrGeneratorUnavailable, resp.StatusCode)
	}
	return nil
}

// post sends a JSON request and decodes the JSON response, mapping transport
// and status failures onto the domain error taxonomy.
func (r *generatorRepository) post(ctx context.Context, path string, reqBody, respBody any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.ErrorContext(ctx, "generator request failed", "error", err, "path", path)
		return fmt.Errorf("%w: %s", domain.ErrGeneratorUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if err := r.statusError(ctx, path, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode generator response for %s: %w", path, err)
	}
	return nil
}

func (r *generatorRepository) statusError(ctx context.Context, path string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	r.logger.WarnContext(ctx, "generator returned error status",
		"path", path, "status", resp.StatusCode, "body", string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrGeneratorOverloaded
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d from %s", domain.ErrGeneratorUnavailable, resp.StatusCode, path)
	default:
		return fmt.Errorf("generator rejected request to %s with status %d: %s", path, resp.StatusCode, string(body))
	}
}
