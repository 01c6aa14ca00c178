package transform

import (
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

// Transformer applies the configured competitors to messages
type Transformer struct {
	competitors *Competitors
	metrics     *metrics.Metrics
}

// NewTransformer creates a transformer for a fixed competitors list
func NewTransformer(c *Competitors, m *metrics.Metrics) *Transformer {
	if c == nil {
		c = &Competitors{}
	}
	return &Transformer{competitors: c, metrics: m}
}

// NewTransformerFromConfig loads the competitors file named in cfg
func NewTransformerFromConfig(cfg *config.TransformerConfig, m *metrics.Metrics, logger zerolog.Logger) (*Transformer, error) {
	c, err := LoadCompetitors(cfg.CompetitorsFile)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("own_handle", c.OwnHandle).
		Int("competitors", len(c.Competitors)).
		Msg("competitors loaded")
	return NewTransformer(c, m), nil
}

// OwnHandle returns the configured own handle
func (t *Transformer) OwnHandle() string {
	return t.competitors.OwnHandle
}

// Competitors returns the configured competitor handles
func (t *Transformer) Competitors() []string {
	return t.competitors.Competitors
}

// Text runs the pipeline on text with the configured handles
func (t *Transformer) Text(text string) Result {
	return ProcessMessageText(text, t.competitors.Competitors, t.competitors.OwnHandle)
}

// Message returns a copy of msg with the derived fields filled in
func (t *Transformer) Message(msg entities.Message) entities.Message {
	res := t.Text(msg.Text)
	msg.DetectedCompetitors = res.DetectedCompetitors
	msg.ModifiedText = res.ModifiedText
	msg.FinalText = res.FinalText
	if t.metrics != nil {
		t.metrics.RecordTransform(len(res.DetectedCompetitors))
	}
	return msg
}
