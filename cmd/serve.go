package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/dedup"
	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/mapping"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/monitoring"
	"github.com/sells-group/migrate-cli/internal/quality"
	"github.com/sells-group/migrate-cli/internal/validate"
)

const (
	maxBodyBytes       = 10 << 20
	maxValidateRecords = 10000
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mapping and validation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lex, err := loadLexicon(cfg)
		if err != nil {
			return err
		}

		if cfg.Monitoring.WebhookURL != "" {
			st, err := initStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(&server{lex: lex, dedupKeys: cfg.Cleanse.DedupKeys}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server holds what the handlers share. Every request builds its own
// engine and tracker.
type server struct {
	lex       *lexicon.Lexicon
	dedupKeys []string
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/mappings/suggest", s.handleSuggest)
		r.Post("/validate", s.handleValidate)
	})

	return r
}

type suggestRequest struct {
	SourceFields      []string `json:"source_fields"`
	DestinationFields []string `json:"destination_fields"`
	RequiredFields    []string `json:"required_fields"`
	ObjectType        string   `json:"object_type"`
	MinConfidence     float64  `json:"min_confidence"`
}

func (s *server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.SourceFields) == 0 {
		respondError(w, http.StatusBadRequest, "source_fields is required")
		return
	}
	if len(req.DestinationFields) == 0 {
		respondError(w, http.StatusBadRequest, "destination_fields is required")
		return
	}

	report := buildMappingReport(mapping.NewResolver(s.lex), req.SourceFields, req.DestinationFields, req.RequiredFields, req.ObjectType, req.MinConfidence)
	respondJSON(w, http.StatusOK, report)
}

type validateRequest struct {
	ObjectType string                 `json:"object_type"`
	Rules      []model.ValidationRule `json:"rules"`
	DedupKeys  []string               `json:"dedup_keys"`
	Records    []model.Record         `json:"records"`
}

type validateResponse struct {
	IsValid        bool                    `json:"is_valid"`
	Total          int                     `json:"total"`
	ValidCount     int                     `json:"valid_count"`
	ErrorCount     int                     `json:"error_count"`
	Duplicates     int                     `json:"duplicates"`
	RulesApplied   int                     `json:"rules_applied"`
	DistinctValues map[string]int          `json:"distinct_values"`
	Issues         []model.ValidationIssue `json:"issues"`
	Metrics        model.QualityMetrics    `json:"metrics"`
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Records) > maxValidateRecords {
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d records per request", maxValidateRecords))
		return
	}

	rules := req.Rules
	if len(rules) == 0 {
		rules = validate.DefaultRules(req.ObjectType)
		if rules == nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("no built-in rules for object type %q; send rules", req.ObjectType))
			return
		}
	}
	engine, err := validate.NewEngine(rules, validate.WithLexicon(s.lex))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	keys := req.DedupKeys
	if len(keys) == 0 {
		keys = s.dedupKeys
	}
	resp := validateBatch(engine, dedup.NewTracker(keys...), req.Records)

	zap.L().Debug("serve: batch validated",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("records", resp.Total),
		zap.Int("errors", resp.ErrorCount),
		zap.Int("duplicates", resp.Duplicates),
	)
	respondJSON(w, http.StatusOK, resp)
}

// validateBatch validates and deduplicates records the way a single-batch
// job does, without persisting anything.
func validateBatch(engine *validate.Engine, tracker *dedup.Tracker, records []model.Record) validateResponse {
	engine.Reset()
	resp := validateResponse{Total: len(records), Issues: []model.ValidationIssue{}}

	for i, rec := range records {
		cleaned, issues := engine.Validate(rec, i)
		if len(issues) == 0 {
			resp.ValidCount++
		} else {
			resp.ErrorCount++
		}
		if dup := tracker.Check(cleaned, i); dup != nil {
			issues = append(issues, *dup)
		}
		resp.Issues = append(resp.Issues, issues...)
	}

	resp.Duplicates = tracker.Duplicates()
	resp.RulesApplied = len(engine.Rules())
	resp.DistinctValues = make(map[string]int, len(tracker.Keys()))
	for _, k := range tracker.Keys() {
		resp.DistinctValues[k] = tracker.Seen(k)
	}
	resp.IsValid = resp.ErrorCount == 0
	resp.Metrics = quality.Score(resp.Total, resp.ValidCount, resp.ErrorCount, resp.Duplicates)
	return resp
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
