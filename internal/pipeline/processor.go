package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

// Processor runs one transcript through the full pipeline. One instance is
// safe for concurrent use: all lexicons and thresholds are immutable and each
// invocation owns its own state.
type Processor struct {
	parser     *Parser
	validator  *Validator
	classifier *Classifier
	identifier *Identifier
	extractor  *Extractor
	scorer     *Scorer
	merger     *Merger
	ai         AIClient
}

// New wires the pipeline stages from configuration. ai may be nil, in which
// case every result comes from the rule path.
func New(cfg *config.Config, ai AIClient) *Processor {
	return &Processor{
		parser:     NewParser(),
		validator:  NewValidator(DefaultValidationLexicon(), cfg.Validation),
		classifier: NewClassifier(DefaultRoleLexicon()),
		identifier: NewIdentifier(),
		extractor:  NewExtractor(DefaultTaxonomy(), cfg.Extraction),
		scorer:     NewScorer(DefaultQualityLexicon(), cfg.Scoring),
		merger:     NewMerger(cfg.Merge),
		ai:         ai,
	}
}

// Process transforms one transcript into a full Result. The only hard failure
// is empty input; AI unavailability and weak evidence degrade the result but
// never fail it.
func (p *Processor) Process(ctx context.Context, raw, fileName string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	validation := p.validator.Validate(raw)
	if !validation.IsValid {
		slog.Warn("transcript failed domain validation, continuing",
			"file", fileName, "reason", validation.Reason)
	}

	conv := p.parser.Parse(raw, fileName)
	roleConfidence := p.classifier.Classify(conv)
	slog.Debug("transcript parsed",
		"file", fileName, "format", conv.Format,
		"utterances", len(conv.Utterances), "role_confidence", roleConfidence)

	convText := dialogueText(conv)

	ruleID := p.identifier.Identify(conv)
	var aiID *Identification
	if p.ai != nil {
		var err error
		aiID, err = p.ai.IdentifySpeakers(ctx, convText)
		if err != nil {
			slog.Warn("AI speaker identification unavailable, using rule path",
				"file", fileName, "error", err)
			aiID = nil
		}
	}
	identification := p.merger.MergeIdentification(aiID, &ruleID)

	ruleSOAP := p.extractor.Extract(conv)
	ruleSOAP.Confidence = p.scorer.ScoreSOAP(ruleSOAP)

	var aiSOAP *SOAPRecord
	if p.ai != nil {
		var err error
		aiSOAP, err = p.ai.GenerateSOAP(ctx, convText, identification.PatientName, identification.DoctorName)
		if err != nil {
			slog.Warn("AI SOAP generation unavailable, using rule path",
				"file", fileName, "error", err)
			aiSOAP = nil
		}
	}
	soap := p.merger.MergeSOAP(aiSOAP, ruleSOAP)
	if soap.Confidence == 0 {
		soap.Confidence = p.scorer.ScoreSOAP(soap)
	}

	ruleQA := p.scorer.AssessQuality(conv)
	var aiQA *QualityAssessment
	if p.ai != nil {
		var err error
		aiQA, err = p.ai.AssessQuality(ctx, convText, soap)
		if err != nil {
			slog.Warn("AI quality assessment unavailable, using rule path",
				"file", fileName, "error", err)
			aiQA = nil
		}
	}
	quality := p.merger.MergeQuality(aiQA, ruleQA)

	return &Result{
		SessionID:      uuid.NewString(),
		FileName:       fileName,
		Format:         conv.Format,
		Validation:     validation,
		Identification: identification,
		SOAP:           *soap,
		Quality:        *quality,
		Conversation:   *conv,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// Validate exposes the domain gate for callers that want a pre-check without
// running the full pipeline.
func (p *Processor) Validate(raw string) ValidationResult {
	return p.validator.Validate(raw)
}

// Identify runs parsing, classification and name identification only.
func (p *Processor) Identify(ctx context.Context, raw, fileName string) (Identification, error) {
	if strings.TrimSpace(raw) == "" {
		return Identification{}, ErrEmptyInput
	}
	conv := p.parser.Parse(raw, fileName)
	p.classifier.Classify(conv)
	ruleID := p.identifier.Identify(conv)

	var aiID *Identification
	if p.ai != nil {
		var err error
		if aiID, err = p.ai.IdentifySpeakers(ctx, dialogueText(conv)); err != nil {
			slog.Warn("AI speaker identification unavailable, using rule path", "error", err)
			aiID = nil
		}
	}
	return p.merger.MergeIdentification(aiID, &ruleID), nil
}

// dialogueText renders the conversation in the speaker-prefixed form the AI
// prompts expect.
func dialogueText(conv *ParsedConversation) string {
	var b strings.Builder
	for _, u := range conv.Utterances {
		b.WriteString(u.Speaker)
		b.WriteString(": ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return b.String()
}
