package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
)

// ErrNoAPIKey is returned when no Gemini API key is configured. Callers treat
// it like any other AI failure and fall back to the rule path.
var ErrNoAPIKey = errors.New("gemini api key not configured")

// Client talks to the Gemini generateContent endpoint. It implements
// pipeline.AIClient; malformed response fields are defaulted, never
// propagated as a crash.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	model           string
	apiKey          string
	maxOutputTokens int
}

// NewClient creates a Gemini client from AI settings. A missing API key does
// not fail construction; every call will return ErrNoAPIKey instead.
func NewClient(settings config.AISettings) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: settings.CallTimeout()},
		baseURL:         strings.TrimRight(settings.BaseURL, "/"),
		model:           settings.Model,
		apiKey:          settings.APIKey(),
		maxOutputTokens: settings.MaxOutputTokens,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentifySpeakers asks the model for participant names.
func (c *Client) IdentifySpeakers(ctx context.Context, conversation string) (*pipeline.Identification, error) {
	prompt := `以下は歯科医院での会話記録です。会話の内容から患者と医師の名前を特定してください。
名前が特定できない場合は「患者」「医師」としてください。

会話記録:
` + conversation + `

次のJSON形式のみで回答してください:
{"patient_name": "...", "doctor_name": "...", "confidence_patient": 0.0, "confidence_doctor": 0.0, "reasoning": "..."}`

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var wire struct {
		PatientName       string  `json:"patient_name"`
		DoctorName        string  `json:"doctor_name"`
		ConfidencePatient float64 `json:"confidence_patient"`
		ConfidenceDoctor  float64 `json:"confidence_doctor"`
		Reasoning         string  `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode identification response: %w", err)
	}

	id := &pipeline.Identification{
		PatientName:       defaultString(wire.PatientName, pipeline.DefaultPatientName),
		DoctorName:        defaultString(wire.DoctorName, pipeline.DefaultDoctorName),
		PatientConfidence: clampUnit(wire.ConfidencePatient),
		DoctorConfidence:  clampUnit(wire.ConfidenceDoctor),
		Reasoning:         wire.Reasoning,
		Method:            pipeline.MethodAIPrimary,
	}
	return id, nil
}

// GenerateSOAP asks the model for a four-section clinical note.
func (c *Client) GenerateSOAP(ctx context.Context, conversation, patientName, doctorName string) (*pipeline.SOAPRecord, error) {
	prompt := fmt.Sprintf(`以下は歯科医院での%sと%sの会話記録です。
この会話からSOAP形式の診療録を作成してください。各セクションは【見出し】を付けた日本語で記述してください。

会話記録:
%s

次のJSON形式のみで回答してください:
{"S": "...", "O": "...", "A": "...", "P": "...", "confidence": 0.0, "dental_specifics": "...", "incomplete_info": "..."}`,
		patientName, doctorName, conversation)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var wire struct {
		S          string  `json:"S"`
		O          string  `json:"O"`
		A          string  `json:"A"`
		P          string  `json:"P"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode soap response: %w", err)
	}

	return &pipeline.SOAPRecord{
		Subjective: wire.S,
		Objective:  wire.O,
		Assessment: wire.A,
		Plan:       wire.P,
		Confidence: clampUnit(wire.Confidence),
		Method:     pipeline.MethodAIPrimary,
	}, nil
}

// AssessQuality asks the model to evaluate the consultation.
func (c *Client) AssessQuality(ctx context.Context, conversation string, soap *pipeline.SOAPRecord) (*pipeline.QualityAssessment, error) {
	note := ""
	if soap != nil {
		note = fmt.Sprintf("S: %s\nO: %s\nA: %s\nP: %s", soap.Subjective, soap.Objective, soap.Assessment, soap.Plan)
	}
	prompt := fmt.Sprintf(`以下は歯科カウンセリングの会話記録と診療録です。カウンセリングの質を評価してください。
スコアはすべて0.0〜1.0の範囲で、根拠を reasoning に日本語で記述してください。

会話記録:
%s

診療録:
%s

次のJSON形式のみで回答してください:
{"success_possibility": {"score": 0.0, "reasoning": "..."},
 "patient_understanding": {"score": 0.0, "reasoning": "..."},
 "treatment_consent_likelihood": {"score": 0.0, "reasoning": "..."},
 "improvement_suggestions": ["..."], "positive_aspects": ["..."]}`,
		conversation, note)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var wire struct {
		SuccessPossibility         wireMetric `json:"success_possibility"`
		CommunicationQuality       wireMetric `json:"communication_quality"`
		PatientUnderstanding       wireMetric `json:"patient_understanding"`
		TreatmentConsentLikelihood wireMetric `json:"treatment_consent_likelihood"`
		ImprovementSuggestions     []string   `json:"improvement_suggestions"`
		PositiveAspects            []string   `json:"positive_aspects"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode quality response: %w", err)
	}

	// Older prompt revisions returned communication_quality for the first
	// metric; accept either key.
	success := wire.SuccessPossibility
	if success.Score == 0 && success.Reasoning == "" {
		success = wire.CommunicationQuality
	}

	qa := &pipeline.QualityAssessment{
		SuccessPossibility:         success.toMetric(),
		PatientUnderstanding:       wire.PatientUnderstanding.toMetric(),
		TreatmentConsentLikelihood: wire.TreatmentConsentLikelihood.toMetric(),
		ImprovementSuggestions:     defaultList(wire.ImprovementSuggestions, "特記事項はありません"),
		PositiveAspects:            defaultList(wire.PositiveAspects, "特記事項はありません"),
		Method:                     pipeline.MethodAIPrimary,
	}
	return qa, nil
}

type wireMetric struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func (w wireMetric) toMetric() pipeline.MetricScore {
	return pipeline.MetricScore{
		Score:     clampUnit(w.Score),
		Reasoning: defaultString(w.Reasoning, "AIによる評価"),
	}
}

// generate performs one generateContent call and returns the candidate text
// with any markdown code fences stripped.
func (c *Client) generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config: genConfig{
			Temperature:     0.2,
			MaxOutputTokens: c.maxOutputTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	return []byte(stripFences(gr.Candidates[0].Content.Parts[0].Text)), nil
}

// stripFences removes a surrounding markdown code fence, which the model
// emits even when asked for raw JSON.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func defaultList(list []string, fallback string) []string {
	out := list[:0:0]
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
