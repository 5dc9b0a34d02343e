package server

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/config"
	"github.com/geniusreads/lattice/internal/core"
	"github.com/geniusreads/lattice/internal/core/extraction"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/llm"
	"github.com/geniusreads/lattice/internal/store"
)

type Server struct {
	Engine    *core.Engine
	Extractor *extraction.Extractor
	Store     store.ConceptStore
	Logger    *zap.Logger
}

func NewServer(ctx context.Context, logger *zap.Logger) (*Server, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("could not load config file, using defaults", zap.String("path", cfgPath), zap.Error(err))
		cfg = config.Default()
	}
	applyEnvOverrides(cfg)

	llmClient, embedderClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		Engine:    core.NewEngine(embedderClient, cfg, logger),
		Extractor: extraction.NewExtractor(llmClient, cfg.Extraction.Prompt, logger),
		Logger:    logger,
	}

	// Persistence is optional: without a DSN the server still matches and
	// merges, it just returns proposals without applying them.
	if cfg.Postgres.DSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.LLM.EmbeddingDim, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		srv.Store = pg
	} else {
		logger.Warn("no postgres DSN configured, running without persistence")
	}

	return srv, nil
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/concepts/process", s.ProcessConcepts)
	r.POST("/concepts/extract", s.ExtractConcepts)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ProcessResponse struct {
	model.ProcessResult
	Storage *model.ApplyResult `json:"storage,omitempty"`
}

func (s *Server) ProcessConcepts(c *gin.Context) {
	var req model.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.ChatSessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_session_id is required"})
		return
	}

	// When the caller sends no snapshot, read one from the store.
	if req.ExistingConcepts == nil && s.Store != nil {
		existing, err := s.Store.ListConcepts(c.Request.Context())
		if err != nil {
			s.Logger.Error("failed to load concept snapshot", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ProcessResponse{
				ProcessResult: model.ProcessResult{Success: false, ErrorMessage: err.Error()},
			})
			return
		}
		req.ExistingConcepts = existing
	}

	resp := ProcessResponse{ProcessResult: s.Engine.Process(c.Request.Context(), req)}
	if !resp.Success {
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	if s.Store != nil {
		applied, err := s.Store.ApplyBatch(c.Request.Context(), req.ChatSessionID, resp.ProcessResult)
		resp.Storage = &applied
		if err != nil {
			s.Logger.Error("failed to apply batch, rolled back", zap.Error(err))
			resp.Success = false
			resp.ErrorMessage = applied.ErrorMessage
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

type ExtractRequest struct {
	ChatSessionID       string                     `json:"chat_session_id"`
	Messages            []model.ChatMessage        `json:"messages"`
	HighlightedContexts []model.HighlightedContext `json:"highlighted_contexts"`
}

type ExtractResponse struct {
	Success      bool                     `json:"success"`
	Concepts     []model.ExtractedConcept `json:"concepts"`
	ErrorMessage string                   `json:"error_message,omitempty"`
}

func (s *Server) ExtractConcepts(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	concepts, err := s.Extractor.ExtractConcepts(c.Request.Context(), req.Messages, req.HighlightedContexts)
	if err != nil {
		s.Logger.Error("concept extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ExtractResponse{Success: false, ErrorMessage: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{Success: true, Concepts: concepts})
}
