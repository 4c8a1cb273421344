// Command ingest drives the content decomposition pipeline end to end:
// parse a source file, run section detection → learning-unit building →
// metadata extraction → chunk storage → relationship mapping, and print a
// summary of what was written.
//
//	go run ./cmd/ingest \
//	  --file ./testdata/class8_physics_ch8.pdf \
//	  --subject Physics --grade 8 --curriculum NCERT --db ./corekb.db
//
// With an LLM client configured, the boundary-proposal and concept-
// extraction assists are enabled; omit --llm-provider to run the fully
// deterministic rule-based path (§4.3, §4.4, §5).
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	corekb "github.com/ncertrag/corekb"
	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/ingest"
	"github.com/ncertrag/corekb/llm"
	"github.com/ncertrag/corekb/llmassist"
	"github.com/ncertrag/corekb/parser"
	"github.com/ncertrag/corekb/store"
)

func main() {
	var (
		filePath    = flag.String("file", "", "path to the source document (pdf, docx, pptx, xlsx, txt)")
		subject     = flag.String("subject", "", "subject, from the closed set in config.go")
		grade       = flag.String("grade", "", "grade level, e.g. 8")
		curriculum  = flag.String("curriculum", "NCERT", "curriculum identifier")
		language    = flag.String("language", "en", "language code")
		dbPath      = flag.String("db", "corekb.db", "path to the SQLite chunk store")
		configPath  = flag.String("config", "", "optional YAML config overlay (§6 Configuration)")
		llmProvider = flag.String("llm-provider", "", "optional LLM provider: ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom")
		llmModel    = flag.String("llm-model", "", "LLM model name")
		llmBaseURL  = flag.String("llm-base-url", "", "LLM base URL override")
		llmAPIKey   = flag.String("llm-api-key", "", "LLM API key")
		jsonOut     = flag.Bool("json", false, "print the full Result as JSON instead of a summary")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *filePath == "" {
		logger.Error("--file is required")
		os.Exit(2)
	}

	if err := run(*filePath, *subject, *grade, *curriculum, *language, *dbPath, *configPath,
		*llmProvider, *llmModel, *llmBaseURL, *llmAPIKey, *jsonOut, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(filePath, subject, grade, curriculum, language, dbPath, configPath,
	llmProvider, llmModel, llmBaseURL, llmAPIKey string, jsonOut bool, logger *slog.Logger) error {
	ctx := context.Background()

	cfg := corekb.DefaultConfig()
	if configPath != "" {
		loaded, err := corekb.LoadConfigYAML(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	st, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		return fmt.Errorf("opening chunk store: %w", err)
	}
	defer st.Close()

	var boundaryProposer ingest.BoundaryProposer
	var conceptProposer ingest.ConceptProposer
	if llmProvider != "" {
		provider, err := llm.NewProvider(llm.Config{
			Provider: llmProvider, Model: llmModel, BaseURL: llmBaseURL, APIKey: llmAPIKey,
		})
		if err != nil {
			return fmt.Errorf("configuring llm provider: %w", err)
		}
		assist := llmassist.New(provider, llmassist.Policy{
			Model:           llmModel,
			Timeout:         time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			MaxRetries:      cfg.LLM.MaxRetries,
			MaxTokens:       cfg.LLM.MaxTokens,
			Temperature:     cfg.LLM.Temperature,
			EnableReasoning: cfg.LLM.EnableReasoning,
		})
		boundaryProposer = assist
		conceptProposer = assist
	}

	engine, err := ingest.New(cfg, st, boundaryProposer, conceptProposer, logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}
	sum := sha256.Sum256(bytes)
	contentHash := hex.EncodeToString(sum[:])

	extracted, contentKind, err := extractText(ctx, filePath)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	req := ingest.DocumentRequest{
		DocumentID:  core.DocumentID(contentHash[:16]),
		Title:       strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
		ContentKind: contentKind,
		FilePath:    filePath,
		ByteSize:    int64(len(bytes)),
		ContentHash: contentHash,
		Subject:     subject,
		GradeLevel:  grade,
		Curriculum:  curriculum,
		Language:    language,
	}

	result, err := engine.IngestDocument(ctx, req, extracted)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("document %s: status=%s sections=%d chunks=%d relationships=%d\n",
		result.Document.DocumentID, result.Document.Status, len(result.Sections), len(result.Chunks), len(result.Relationships))
	for secID, msgs := range result.SectionIssues {
		for _, m := range msgs {
			fmt.Printf("  issue[%s]: %s\n", secID, m)
		}
	}
	return nil
}

// extractText routes filePath to the right format-specific parser and
// adapts its ParseResult into the §6 ExtractedText contract. Plain .txt
// files bypass the parser registry entirely, matching ContentKindText.
func extractText(ctx context.Context, filePath string) (ingest.ExtractedText, core.ContentKind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")

	if ext == "txt" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return ingest.ExtractedText{}, "", err
		}
		text := string(data)
		return ingest.ExtractedText{
			FullText: text,
			Pages:    singlePageRecord(text),
		}, core.ContentKindText, nil
	}

	registry := parser.NewRegistry()
	p, err := registry.Get(ext)
	if err != nil {
		return ingest.ExtractedText{}, "", err
	}
	result, err := p.Parse(ctx, filePath)
	if err != nil {
		return ingest.ExtractedText{}, "", err
	}

	kind := core.ContentKindPDF
	if ext != "pdf" {
		kind = core.ContentKindText
	}
	return ingest.FromParseResult(result), kind, nil
}

// singlePageRecord wraps a plain-text file (no page structure available) as
// a single synthetic page so ExtractedText.PageAt still has something to
// report against.
func singlePageRecord(text string) []ingest.PageRecord {
	return []ingest.PageRecord{{
		PageNumber: 1,
		Text:       text,
		CharCount:  len(text),
	}}
}
