package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
	"github.com/bsaid97/go-parcel-consolidator/utils"
)

// server exposes the reports over HTTP. Each request carries its own
// parcel source: a CSV upload, a CSV body or a server-side filepath.
type server struct {
	svc    *service
	csv    parcels.CSVOptions
	logger *zap.Logger
}

func newRouter(svc *service, csv parcels.CSVOptions, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{svc: svc, csv: csv, logger: logger.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.health)
	r.Post("/analyze", s.handle(runAnalyze))
	r.Post("/adjacency", s.handle(withoutContext((*service).Adjacency)))
	r.Post("/merge", s.handle(withoutContext((*service).Merge)))
	r.Post("/owners", s.handle(withoutContext((*service).Owners)))
	r.Post("/swaps", s.handle(withoutContext((*service).Swaps)))
	r.Post("/areas", s.handle(withoutContext((*service).Areas)))
	r.Post("/check", s.handle(withoutContext((*service).Check)))
	return r
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())))
		})
	}
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handle(run runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sel, err := newSelection(q.Get("region-type"), q["region"])
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}

		store, err := s.readStore(r)
		if err != nil {
			s.fail(w, r, statusFor(err, http.StatusBadRequest), err)
			return
		}

		out, err := run(r.Context(), s.svc, store, sel)
		if err != nil {
			s.fail(w, r, statusFor(err, http.StatusInternalServerError), err)
			return
		}
		respond(w, http.StatusOK, out)
	}
}

func (s *server) readStore(r *http.Request) (*parcels.Store, error) {
	req, err := utils.ReadParcelRequest(r, "file")
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(req.Properties.Format)
	var ps []parcels.Parcel
	if req.File != "" {
		if format != "" && format != parcels.FormatCSV {
			return nil, fmt.Errorf("uploaded sources must be csv, got %q", req.Properties.Format)
		}
		ps, err = parcels.ReadCSV(strings.NewReader(req.File), s.csv)
	} else {
		ps, err = parcels.Load(req.Properties.FilePath, format, s.csv)
	}
	if err != nil {
		return nil, err
	}
	return parcels.NewStore(ps)
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, diagnostics.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, utils.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := s.logger.Warn
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Error(err))
	respond(w, status, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
