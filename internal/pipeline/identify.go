package pipeline

import (
	"fmt"
	"regexp"
)

// DefaultPatientName and DefaultDoctorName are the anonymous fallbacks used
// when no name evidence exists. The merger treats them as "no value".
const (
	DefaultPatientName = "患者"
	DefaultDoctorName  = "医師"
)

var (
	patientNameRe = regexp.MustCompile(`([\p{Han}]{1,4})さん`)
	doctorNameRe  = regexp.MustCompile(`([\p{Han}]{1,4})(?:先生|医師)|Dr\.?\s*([A-Za-z\p{Han}]{1,10})`)
)

// Identifier extracts participant names from honorific patterns in the
// dialogue text. It is the rule path; the AI path may supply better names.
type Identifier struct{}

// NewIdentifier creates a rule-based name identifier.
func NewIdentifier() *Identifier {
	return &Identifier{}
}

// Identify scans all utterance text for name-with-honorific patterns. The
// most frequent match wins for each role; with no evidence the anonymous
// defaults carry a low confidence so the merger can overrule them.
func (id *Identifier) Identify(conv *ParsedConversation) Identification {
	result := Identification{
		PatientName:       DefaultPatientName,
		DoctorName:        DefaultDoctorName,
		PatientConfidence: 0.3,
		DoctorConfidence:  0.3,
		Method:            MethodRuleBased,
	}

	patientCounts := map[string]int{}
	doctorCounts := map[string]int{}
	for _, u := range conv.Utterances {
		for _, m := range patientNameRe.FindAllStringSubmatch(u.Text, -1) {
			if !genericTitle(m[1]) {
				patientCounts[m[1]]++
			}
		}
		for _, m := range doctorNameRe.FindAllStringSubmatch(u.Text, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if !genericTitle(name) {
				doctorCounts[name]++
			}
		}
	}

	if name, n := mostFrequent(patientCounts); n > 0 {
		result.PatientName = name + "さん"
		result.PatientConfidence = 0.9
		result.Reasoning = fmt.Sprintf("会話中で「%sさん」と%d回呼びかけられています", name, n)
	}
	if name, n := mostFrequent(doctorCounts); n > 0 && name != result.PatientName {
		result.DoctorName = name + "先生"
		result.DoctorConfidence = 0.8
		if result.Reasoning != "" {
			result.Reasoning += "。"
		}
		result.Reasoning += fmt.Sprintf("「%s先生」への言及が%d回あります", name, n)
	}
	if result.Reasoning == "" {
		result.Reasoning = "氏名の手がかりが会話中に見つからないため、匿名表記を使用します"
	}
	return result
}

// genericTitle rejects role words that happen to precede an honorific
// ("患者さん", "歯科医師") so they are not mistaken for names.
func genericTitle(name string) bool {
	switch name {
	case "患者", "歯科", "担当", "医師", "先生":
		return true
	}
	return false
}

func mostFrequent(counts map[string]int) (string, int) {
	best, bestN := "", 0
	for name, n := range counts {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best, bestN
}
