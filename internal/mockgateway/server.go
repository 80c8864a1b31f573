// Package mockgateway is an in-memory test double of the payment gateway. It
// speaks the same JSON envelope as the real API for the endpoints the SDK
// uses and keeps all state in memory.
//
// Magic amounts drive the failure flows: a transaction of 666.00 is processed
// and declined ("isError": true), one of 999.00 is rejected with HTTP 422.
// Redirect payment types and charges with card3ds set end up pending with a
// redirect URL.
package mockgateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_mock_http_requests_total",
		Help: "Requests served by the mock gateway",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygate_mock_http_request_duration_seconds",
		Help:    "Mock gateway request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"method", "endpoint"})
)

const (
	magicDecline = cents(66600)
	magicReject  = cents(99900)
	tokenTTL     = 15 * time.Minute
)

type Options struct {
	// PrivateKey is the only accepted Basic auth user. Empty accepts any
	// non-empty key.
	PrivateKey string
	// JWTSecret signs the bearer tokens issued by the token endpoint.
	JWTSecret []byte
}

type Server struct {
	key    string
	secret []byte

	mu        sync.Mutex
	types     map[string]map[string]any
	customers map[string]map[string]any
	baskets   map[string]map[string]any
	metadata  map[string]map[string]any
	paypages  map[string]map[string]any
	payments  map[string]*paymentRecord
}

func New(opts Options) *Server {
	secret := opts.JWTSecret
	if len(secret) == 0 {
		secret = []byte("mockgateway")
	}
	return &Server{
		key:       opts.PrivateKey,
		secret:    secret,
		types:     map[string]map[string]any{},
		customers: map[string]map[string]any{},
		baskets:   map[string]map[string]any{},
		metadata:  map[string]map[string]any{},
		paypages:  map[string]map[string]any{},
		payments:  map[string]*paymentRecord{},
	}
}

// Handler returns the router of the gateway, including /metrics and /health.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.instrument)

	v1.HandleFunc("/auth/token", s.basicOnly(s.IssueToken)).Methods("POST")

	api := v1.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/types/{name}", s.CreateType).Methods("POST")
	api.HandleFunc("/types/{name}/{id}", s.GetType).Methods("GET")
	api.HandleFunc("/types/{name}/{id}", s.UpdateType).Methods("PUT")

	api.HandleFunc("/customers", s.createDoc(s.customers, "cst", "customer")).Methods("POST")
	api.HandleFunc("/customers/{id}", s.GetCustomer).Methods("GET")
	api.HandleFunc("/customers/{id}", s.updateDoc(s.customers, "customer")).Methods("PUT")
	api.HandleFunc("/customers/{id}", s.deleteDoc(s.customers, "customer")).Methods("DELETE")
	api.HandleFunc("/baskets", s.createDoc(s.baskets, "bsk", "basket")).Methods("POST")
	api.HandleFunc("/baskets/{id}", s.getDoc(s.baskets, "basket")).Methods("GET")
	api.HandleFunc("/baskets/{id}", s.updateDoc(s.baskets, "basket")).Methods("PUT")
	api.HandleFunc("/metadata", s.createDoc(s.metadata, "mtd", "metadata")).Methods("POST")
	api.HandleFunc("/metadata/{id}", s.getDoc(s.metadata, "metadata")).Methods("GET")
	api.HandleFunc("/metadata/{id}", s.updateDoc(s.metadata, "metadata")).Methods("PUT")

	api.HandleFunc("/payments/charges", s.ChargeNew).Methods("POST")
	api.HandleFunc("/payments/authorize", s.Authorize).Methods("POST")
	api.HandleFunc("/payments/{pid}", s.GetPayment).Methods("GET")
	api.HandleFunc("/payments/{pid}/charges", s.ChargeAuthorization).Methods("POST")
	api.HandleFunc("/payments/{pid}/charges/{tid}", s.getTxn(txCharge)).Methods("GET")
	api.HandleFunc("/payments/{pid}/charges/{tid}", s.updateTxn(txCharge)).Methods("PUT")
	api.HandleFunc("/payments/{pid}/authorize/{tid}", s.getTxn(txAuthorize)).Methods("GET")
	api.HandleFunc("/payments/{pid}/authorize/{tid}", s.updateTxn(txAuthorize)).Methods("PUT")
	api.HandleFunc("/payments/{pid}/charges/{parent}/cancels", s.Cancel(txCharge)).Methods("POST")
	api.HandleFunc("/payments/{pid}/authorize/{parent}/cancels", s.Cancel(txAuthorize)).Methods("POST")
	api.HandleFunc("/payments/{pid}/charges/{parent}/cancels/{tid}", s.getTxn(txCancelCharge)).Methods("GET")
	api.HandleFunc("/payments/{pid}/authorize/{parent}/cancels/{tid}", s.getTxn(txCancelAuthorize)).Methods("GET")
	api.HandleFunc("/payments/{pid}/shipments", s.Ship).Methods("POST")
	api.HandleFunc("/payments/{pid}/shipments/{tid}", s.getTxn(txShipment)).Methods("GET")

	api.HandleFunc("/paypage/{action}", s.bearerOnly(s.CreatePaypage)).Methods("POST")
	api.HandleFunc("/paypage/{action}/{id}", s.bearerOnly(s.GetPaypage)).Methods("GET")
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(httpLatency.WithLabelValues(r.Method, endpoint(r)))
		defer timer.ObserveDuration()
		next.ServeHTTP(w, r)
	})
}

func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type authKind int

const (
	authNone authKind = iota
	authBasic
	authBearer
)

type authKey struct{}

// authenticate accepts Basic auth with the private key or a bearer token
// issued by IssueToken.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := s.check(r.Header.Get("Authorization"))
		if kind == authNone {
			respondError(w, r, http.StatusUnauthorized, "API.000.000.001", "Authorization failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKey{}, kind)))
	})
}

func (s *Server) check(header string) authKind {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return authNone
	}
	switch strings.ToLower(scheme) {
	case "basic":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return authNone
		}
		user, _, _ := strings.Cut(string(raw), ":")
		if user == "" || (s.key != "" && user != s.key) {
			return authNone
		}
		return authBasic
	case "bearer":
		token, err := jwt.Parse(value, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			return authNone
		}
		return authBearer
	}
	return authNone
}

func (s *Server) basicOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.check(r.Header.Get("Authorization")) != authBasic {
			respondError(w, r, http.StatusUnauthorized, "API.000.000.002", "Basic authorization with the private key required")
			return
		}
		h(w, r)
	}
}

func (s *Server) bearerOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if kind, _ := r.Context().Value(authKey{}).(authKind); kind != authBearer {
			respondError(w, r, http.StatusUnauthorized, "API.000.000.003", "Bearer token required")
			return
		}
		h(w, r)
	}
}

// IssueToken returns a signed bearer token for the private key.
func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	exp := time.Now().Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "merchant",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "API.000.000.999", err.Error())
		return
	}
	respondJSON(w, r, http.StatusCreated, map[string]any{
		"accessToken": signed,
		"expiresIn":   int(tokenTTL.Seconds()),
	})
}

// Helpers

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	httpReqTotal.WithLabelValues(r.Method, endpoint(r), strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes the gateway's error envelope.
func respondError(w http.ResponseWriter, r *http.Request, code int, errCode, msg string) {
	respondJSON(w, r, code, map[string]any{
		"id":      newID("err"),
		"isError": true,
		"url":     r.URL.String(),
		"errors": []map[string]string{{
			"code":            errCode,
			"merchantMessage": msg,
			"customerMessage": "An error occurred. Please contact the merchant.",
		}},
	})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
