package main

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// Tokenizer counts model tokens exactly, as opposed to the chars/4 estimate.
type Tokenizer interface {
	CountTokens(text string) (int, error)
	Name() string
}

// --- Tiktoken Wrapper ---

type TiktokenWrapper struct {
	model string
	ttk   *tiktoken.Tiktoken
}

func (w *TiktokenWrapper) CountTokens(text string) (int, error) {
	return len(w.ttk.EncodeOrdinary(text)), nil
}

func (w *TiktokenWrapper) Name() string { return "tiktoken/" + w.model }

// --- HuggingFace (sugarme) Wrapper ---

type HFTokenizerWrapper struct {
	model string
	htk   *hf.Tokenizer
}

func (w *HFTokenizerWrapper) CountTokens(text string) (int, error) {
	en, err := w.htk.EncodeSingle(text)
	if err != nil {
		return 0, fmt.Errorf("huggingface tokenizer failed to encode text: %w", err)
	}
	return len(en.Tokens), nil
}

func (w *HFTokenizerWrapper) Name() string { return "huggingface/" + w.model }

// --- Tokenizer Loading Logic ---

const (
	tokenizerTiktoken    = "tiktoken"
	tokenizerHuggingFace = "huggingface"

	defaultTiktokenModel = "gpt-4o"
	defaultHFModel       = "gpt2"
)

// TokenizerOptions selects and configures an exact tokenizer.
type TokenizerOptions struct {
	Type  string // "", "tiktoken" or "huggingface"; empty disables exact counting
	Model string
	File  string // Local tokenizer.json for huggingface
}

// newTokenizer returns nil, nil when no tokenizer is configured.
func newTokenizer(opts TokenizerOptions, logger *zap.Logger) (Tokenizer, error) {
	switch strings.ToLower(opts.Type) {
	case "":
		return nil, nil
	case tokenizerTiktoken:
		return loadTiktoken(opts, logger)
	case tokenizerHuggingFace:
		return loadHuggingFace(opts, logger)
	default:
		return nil, fmt.Errorf("unsupported tokenizer type: %s. Use '%s' or '%s'", opts.Type, tokenizerTiktoken, tokenizerHuggingFace)
	}
}

func loadTiktoken(opts TokenizerOptions, logger *zap.Logger) (Tokenizer, error) {
	model := opts.Model
	if model == "" {
		model = defaultTiktokenModel
	}

	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("tiktoken model not found, falling back to default",
			zap.String("model", model), zap.String("default", defaultTiktokenModel), zap.Error(err))
		model = defaultTiktokenModel
		tke, err = tiktoken.EncodingForModel(model)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for default model '%s': %w", model, err)
		}
	}
	return &TiktokenWrapper{model: model, ttk: tke}, nil
}

func loadHuggingFace(opts TokenizerOptions, logger *zap.Logger) (Tokenizer, error) {
	if opts.File != "" {
		logger.Info("loading huggingface tokenizer from file", zap.String("file", opts.File))
		ttk, err := pretrained.FromFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", opts.File, err)
		}
		return &HFTokenizerWrapper{model: opts.File, htk: ttk}, nil
	}

	model := opts.Model
	if model == "" {
		model = defaultHFModel
	}
	logger.Info("loading huggingface tokenizer (this may download files)", zap.String("model", model))

	configFilePath, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}
	ttk, err := pretrained.FromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s (from %s): %w", model, configFilePath, err)
	}
	return &HFTokenizerWrapper{model: model, htk: ttk}, nil
}

// countExactTokens fills in the exact token count of doc. A nil tokenizer leaves doc unchanged.
func countExactTokens(doc *ContextDocument, tk Tokenizer) error {
	if tk == nil {
		return nil
	}
	n, err := tk.CountTokens(doc.Text)
	if err != nil {
		return err
	}
	doc.Summary.ExactTokens = n
	doc.Summary.HasExactTokens = true
	return nil
}
