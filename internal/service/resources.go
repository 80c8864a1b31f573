package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/payerr"
	"github.com/punchamoorthee/paygate/internal/store"
	"github.com/punchamoorthee/paygate/internal/transport"
)

const (
	SDKType    = "paygate-go"
	SDKVersion = "1.0.0"
)

// Journal records the response bodies of successful operations.
type Journal interface {
	Record(ctx context.Context, s store.Snapshot) error
}

// ResourceService synchronizes resources with the gateway. Every operation is
// a single blocking round trip; nothing is retried.
//
// A response with "isError": true is returned with a nil error and the
// resource left untouched, for every method. Callers decide whether that is
// a failure.
type ResourceService struct {
	transport transport.Transport
	tokens    *transport.TokenSource
	urls      resolver
	key       string
	auth      string
	locale    string
	debug     bool
	logger    *slog.Logger
	journal   Journal
	now       func() time.Time
}

func newResourceService(cfg *config.Config, t transport.Transport, logger *slog.Logger, j Journal) *ResourceService {
	urls := resolver{env: cfg.Env, baseURL: cfg.BaseURL}
	return &ResourceService{
		transport: t,
		tokens:    transport.NewTokenSource(t, urls.tokenURL(), cfg.PrivateKey),
		urls:      urls,
		key:       cfg.PrivateKey,
		auth:      cfg.Auth,
		locale:    cfg.Locale,
		debug:     cfg.Debug,
		logger:    logger,
		journal:   j,
		now:       time.Now,
	}
}

// Send performs one request and parses the response envelope. HTTP errors
// and responses carrying an "errors" array are returned as *payerr.APIError
// together with the parsed response.
func (s *ResourceService) Send(ctx context.Context, api domain.API, path string, m domain.Method, body []byte) (*domain.Response, error) {
	authz, err := s.authorization(ctx, api)
	if err != nil {
		return nil, err
	}
	req := &transport.Request{
		Method: string(m),
		URL:    s.urls.url(api, path),
		Header: http.Header{
			"Authorization":   {authz},
			"Content-Type":    {"application/json"},
			"Accept-Language": {s.locale},
			"Sdk-Type":        {SDKType},
			"Sdk-Version":     {SDKVersion},
			"X-Request-Id":    {uuid.NewString()},
		},
		Body: body,
		API:  api.String(),
	}
	if s.debug {
		s.logger.Debug("gateway request", "method", req.Method, "url", req.URL,
			"request_id", req.Header.Get("X-Request-Id"), "headers", redact(req.Header), "body", string(body))
	}

	res, err := s.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.debug {
		s.logger.Debug("gateway response", "url", req.URL, "status", res.Status, "body", string(res.Body))
	}
	if res.Status == http.StatusUnauthorized && s.usesBearer(api) {
		s.tokens.Invalidate()
	}

	resp, err := domain.ParseResponse(res.Status, res.Body)
	if err != nil {
		if res.Status >= 400 {
			return resp, resp.APIError()
		}
		return resp, err
	}
	if resp.Failed() {
		return resp, resp.APIError()
	}
	return resp, nil
}

func (s *ResourceService) usesBearer(api domain.API) bool {
	switch api {
	case domain.APIToken:
		return false
	case domain.APIPaypage:
		return true
	default:
		return s.auth == config.AuthBearer
	}
}

func (s *ResourceService) authorization(ctx context.Context, api domain.API) (string, error) {
	if !s.usesBearer(api) {
		return transport.BasicAuth(s.key), nil
	}
	tok, err := s.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain bearer token: %w", err)
	}
	return transport.BearerAuth(tok), nil
}

func redact(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "[redacted]")
	}
	return out
}

// Create sends r to its collection path. Linked resources without an id are
// created first. The id of the response is assigned before HandleResponse
// runs.
func (s *ResourceService) Create(ctx context.Context, r domain.Resource) (*domain.Response, error) {
	if id := r.ResourceID(); id != "" {
		return nil, payerr.AlreadyPersisted(r.Kind(), id)
	}
	if err := s.resolveLinks(ctx, r); err != nil {
		return nil, err
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Kind(), err)
	}

	resp, err := s.Send(ctx, r.API(), r.CollectionPath(), domain.MethodPost, body)
	if err != nil || resp.IsError {
		return resp, err
	}
	if resp.ID != "" {
		r.SetResourceID(resp.ID)
	}
	if err := r.HandleResponse(resp.Body, domain.MethodPost); err != nil {
		return resp, err
	}
	s.record(ctx, r, domain.MethodPost, resp)
	return resp, nil
}

// Fetch reads r by id and merges the response.
func (s *ResourceService) Fetch(ctx context.Context, r domain.Resource) (*domain.Response, error) {
	if r.ResourceID() == "" {
		return nil, payerr.IDRequired(r.Kind())
	}
	return s.FetchPath(ctx, r, r.CollectionPath()+"/"+r.ResourceID())
}

// FetchPath reads r from an explicit path, for lookups by a key other than
// the gateway id.
func (s *ResourceService) FetchPath(ctx context.Context, r domain.Resource, path string) (*domain.Response, error) {
	resp, err := s.Send(ctx, r.API(), path, domain.MethodGet, nil)
	if err != nil || resp.IsError {
		return resp, err
	}
	if err := r.HandleResponse(resp.Body, domain.MethodGet); err != nil {
		return resp, err
	}
	if f, ok := r.(interface{ MarkFetched(time.Time) }); ok {
		f.MarkFetched(s.now())
	}
	s.record(ctx, r, domain.MethodGet, resp)
	return resp, nil
}

func (s *ResourceService) Update(ctx context.Context, r domain.Resource) (*domain.Response, error) {
	if r.ResourceID() == "" {
		return nil, payerr.IDRequired(r.Kind())
	}
	if err := s.resolveLinks(ctx, r); err != nil {
		return nil, err
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Kind(), err)
	}

	resp, err := s.Send(ctx, r.API(), r.CollectionPath()+"/"+r.ResourceID(), domain.MethodPut, body)
	if err != nil || resp.IsError {
		return resp, err
	}
	if err := r.HandleResponse(resp.Body, domain.MethodPut); err != nil {
		return resp, err
	}
	s.record(ctx, r, domain.MethodPut, resp)
	return resp, nil
}

// Delete removes r remotely and clears its id.
func (s *ResourceService) Delete(ctx context.Context, r domain.Resource) (*domain.Response, error) {
	if r.ResourceID() == "" {
		return nil, payerr.IDRequired(r.Kind())
	}
	resp, err := s.Send(ctx, r.API(), r.CollectionPath()+"/"+r.ResourceID(), domain.MethodDelete, nil)
	if err != nil || resp.IsError {
		return resp, err
	}
	s.record(ctx, r, domain.MethodDelete, resp)
	r.SetResourceID("")
	return resp, nil
}

// resolveLinks creates the linked resources that have no id yet, in name
// order.
func (s *ResourceService) resolveLinks(ctx context.Context, r domain.Resource) error {
	links, err := r.LinkedResources()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		link := links[name]
		if link == nil || link.ResourceID() != "" {
			continue
		}
		resp, err := s.Create(ctx, link)
		if err != nil {
			return fmt.Errorf("create linked %s: %w", name, err)
		}
		if resp.IsError {
			return fmt.Errorf("create linked %s: %w", name, resp.APIError())
		}
	}
	return nil
}

func (s *ResourceService) record(ctx context.Context, r domain.Resource, m domain.Method, resp *domain.Response) {
	if s.journal == nil {
		return
	}
	snap := store.Snapshot{
		Kind:       r.Kind(),
		ID:         r.ResourceID(),
		Method:     string(m),
		Body:       resp.Body,
		RecordedAt: s.now().UTC(),
	}
	if p, ok := r.(interface{ PaymentID() string }); ok {
		snap.PaymentID = p.PaymentID()
	}
	if err := s.journal.Record(ctx, snap); err != nil {
		s.logger.Warn("journal record failed", "kind", snap.Kind, "id", snap.ID, "error", err)
	}
}
