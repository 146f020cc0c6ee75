package app

import (
	"go.uber.org/zap"

	"pymentor/internal/gateway/config"
	"pymentor/internal/llm"
)

type llmClients struct {
	analysis llm.Client
	tutor    llm.Client
	usage    *llm.UsageCounter
}

// buildLLM wraps each model client as Logging(Hook(RateLimit(inner))).
func buildLLM(cfg config.LLMConfig, logger *zap.Logger) llmClients {
	usage := llm.NewUsageCounter()
	wrap := func(inner llm.Client) llm.Client {
		return llm.Wrap(inner,
			llm.WithLogging(logger.Named("llm")),
			llm.WithHook(usage),
			llm.WithRateLimit(cfg.RPS, cfg.Burst),
		)
	}
	if cfg.Fake {
		logger.Warn("LLM_FAKE is set, using the offline model client")
		fake := llm.NewFakeClient()
		return llmClients{analysis: wrap(fake), tutor: wrap(fake), usage: usage}
	}
	if cfg.APIKey == "" {
		logger.Warn("no Gemini API key; analysis will degrade and the tutor will use its fallback reply")
	}
	analysis := llm.NewGeminiClient(llm.GeminiConfig{APIKey: cfg.APIKey, Model: cfg.AnalysisModel, Timeout: cfg.Timeout})
	tutor := llm.NewGeminiClient(llm.GeminiConfig{APIKey: cfg.APIKey, Model: cfg.TutorModel, Timeout: cfg.Timeout})
	return llmClients{analysis: wrap(analysis), tutor: wrap(tutor), usage: usage}
}

func (c llmClients) Close() {
	_ = c.analysis.Close()
	_ = c.tutor.Close()
}
