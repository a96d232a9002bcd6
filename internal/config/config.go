package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidationSettings tunes the dental-relevance gate.
type ValidationSettings struct {
	ContaminationThreshold float64 `yaml:"contamination_threshold"`
	ConfidenceFloor        float64 `yaml:"confidence_floor"`
	ConfidenceCeiling      float64 `yaml:"confidence_ceiling"`
}

// ExtractionSettings caps how many matched utterances each SOAP section keeps.
type ExtractionSettings struct {
	MaxSubjective     int `yaml:"max_subjective"`
	MaxObjective      int `yaml:"max_objective"`
	MaxAssessment     int `yaml:"max_assessment"`
	MaxPlan           int `yaml:"max_plan"`
	MinUtteranceRunes int `yaml:"min_utterance_runes"`
}

// ScoringSettings holds the SOAP confidence weights and thresholds.
type ScoringSettings struct {
	TargetDetailChars       int     `yaml:"target_detail_chars"`
	SectionSubstantiveRunes int     `yaml:"section_substantive_runes"`
	CompletenessWeight      float64 `yaml:"completeness_weight"`
	DetailWeight            float64 `yaml:"detail_weight"`
	TerminologyWeight       float64 `yaml:"terminology_weight"`
	StructureWeight         float64 `yaml:"structure_weight"`
}

// MergeSettings controls when an AI result is adopted wholesale.
type MergeSettings struct {
	SOAPAcceptFloor     float64 `yaml:"soap_accept_floor"`
	IdentifyAcceptFloor float64 `yaml:"identify_accept_floor"`
	SectionPreferRunes  int     `yaml:"section_prefer_runes"`
	SectionMinRunes     int     `yaml:"section_min_runes"`
}

// AISettings configures the Gemini collaborator client. The API key is read
// from the environment, never from config files.
type AISettings struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	CallTimeoutSec  int    `yaml:"call_timeout_sec"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// ServerSettings configures the HTTP API surface.
type ServerSettings struct {
	Address         string `yaml:"address"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
}

// StoreSettings configures local persistence of processed records.
type StoreSettings struct {
	Path      string `yaml:"path"`
	JSONLPath string `yaml:"jsonl_path"`
}

// WorkerSettings bounds batch processing.
type WorkerSettings struct {
	MaxConcurrent     int   `yaml:"max_concurrent"`
	AIRateLimitPerMin int   `yaml:"ai_rate_limit_per_min"`
	MaxFileBytes      int64 `yaml:"max_file_bytes"`
	MinContentRunes   int   `yaml:"min_content_runes"`
}

// Config holds the full application configuration. Everything in here is
// immutable after Load; pipeline components receive it at construction time.
type Config struct {
	Validation ValidationSettings `yaml:"validation"`
	Extraction ExtractionSettings `yaml:"extraction"`
	Scoring    ScoringSettings    `yaml:"scoring"`
	Merge      MergeSettings      `yaml:"merge"`
	AI         AISettings         `yaml:"ai"`
	Server     ServerSettings     `yaml:"server"`
	Store      StoreSettings      `yaml:"store"`
	Worker     WorkerSettings     `yaml:"worker"`
}

// Default returns the hardcoded defaults matching the reference behavior.
func Default() *Config {
	return &Config{
		Validation: ValidationSettings{
			ContaminationThreshold: 2.0,
			ConfidenceFloor:        0.3,
			ConfidenceCeiling:      0.95,
		},
		Extraction: ExtractionSettings{
			MaxSubjective:     3,
			MaxObjective:      4,
			MaxAssessment:     2,
			MaxPlan:           3,
			MinUtteranceRunes: 6,
		},
		Scoring: ScoringSettings{
			TargetDetailChars:       500,
			SectionSubstantiveRunes: 20,
			CompletenessWeight:      0.4,
			DetailWeight:            0.3,
			TerminologyWeight:       0.2,
			StructureWeight:         0.1,
		},
		Merge: MergeSettings{
			SOAPAcceptFloor:     0.6,
			IdentifyAcceptFloor: 0.7,
			SectionPreferRunes:  50,
			SectionMinRunes:     20,
		},
		AI: AISettings{
			BaseURL:         "https://generativelanguage.googleapis.com",
			Model:           "gemini-1.5-flash",
			APIKeyEnv:       "GEMINI_API_KEY",
			CallTimeoutSec:  60,
			MaxOutputTokens: 2048,
		},
		Server: ServerSettings{
			Address:         ":8001",
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 30,
		},
		Store: StoreSettings{
			Path:      "./data",
			JSONLPath: "./data/sessions.jsonl",
		},
		Worker: WorkerSettings{
			MaxConcurrent:     3,
			AIRateLimitPerMin: 30,
			MaxFileBytes:      10 << 20,
			MinContentRunes:   10,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// APIKey resolves the Gemini API key from the configured environment variable.
func (a AISettings) APIKey() string {
	return os.Getenv(a.APIKeyEnv)
}

// CallTimeout is the deadline the calling layer imposes on one AI request.
func (a AISettings) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutSec) * time.Second
}

// ReadTimeout returns the server read timeout as a duration.
func (s ServerSettings) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the server write timeout as a duration.
func (s ServerSettings) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSec) * time.Second
}
