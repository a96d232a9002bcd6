package pipeline

import (
	"encoding/csv"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Parser detects the transcript layout and extracts ordered utterances.
// Detection signals are not mutually exclusive; the first match in a fixed
// precedence order wins: speaker-tag forms, then CSV, then subtitle blocks,
// then Markdown summaries, then unknown.
type Parser struct{}

// NewParser creates a format parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	plaudTagRe    = regexp.MustCompile(`(?m)^Speaker\s*([A-Za-z])\s*[:：]\s*(.*)$`)
	nottaTagRe    = regexp.MustCompile(`(?m)^[【\[]発言者(\d+)[】\]]\s*(.*)$`)
	srtTimeRe     = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[,.]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	bulletLineRe  = regexp.MustCompile(`(?m)^[-*]\s+\S`)
	csvHeaderHint = regexp.MustCompile(`(?i)speaker|start\s*time|話者|開始`)
)

// Parse analyzes raw transcript text and returns a conversation. A transcript
// that yields zero utterances still returns a valid empty conversation.
func (p *Parser) Parse(raw, fileName string) *ParsedConversation {
	conv := &ParsedConversation{
		Format:          p.detectFormat(raw, fileName),
		TotalLines:      len(strings.Split(raw, "\n")),
		TotalCharacters: utf8.RuneCountInString(raw),
	}

	switch conv.Format {
	case FormatPlaudTxt:
		conv.Utterances = parseTagged(raw, plaudTagRe, plaudRoleGuess)
	case FormatNottaTxt:
		conv.Utterances = parseTagged(raw, nottaTagRe, nottaRoleGuess)
	case FormatNottaCSV:
		conv.Utterances = parseNottaCSV(raw)
	case FormatSRT:
		conv.Utterances = parseSRT(raw)
	case FormatMarkdownSummary:
		conv.Utterances = parseMarkdownSummary(raw)
	}

	return conv
}

func (p *Parser) detectFormat(raw, fileName string) SourceFormat {
	lowerName := strings.ToLower(fileName)
	ext := filepath.Ext(lowerName)

	switch {
	case plaudTagRe.MatchString(raw),
		strings.Contains(lowerName, "plaud") && ext == ".txt":
		return FormatPlaudTxt
	case nottaTagRe.MatchString(raw):
		return FormatNottaTxt
	case looksLikeCSV(raw, ext):
		return FormatNottaCSV
	case srtTimeRe.MatchString(raw):
		return FormatSRT
	case ext == ".md", ext == ".markdown", bulletLineRe.MatchString(raw):
		return FormatMarkdownSummary
	default:
		return FormatUnknown
	}
}

func looksLikeCSV(raw, ext string) bool {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	if strings.Count(firstLine, ",") < 2 {
		return false
	}
	return ext == ".csv" || csvHeaderHint.MatchString(firstLine)
}

func plaudRoleGuess(tag string) Role {
	// Two-speaker recorder convention: A is the treating doctor, B the
	// patient. The classifier overrides this when content contradicts it.
	switch strings.ToUpper(tag) {
	case "A":
		return RoleDoctor
	case "B":
		return RolePatient
	default:
		return RoleUnknown
	}
}

func nottaRoleGuess(tag string) Role {
	if tag == "1" {
		return RoleDoctor
	}
	return RolePatient
}

// parseTagged handles line-oriented formats where each utterance starts with
// a speaker tag. Untagged continuation lines append to the open utterance.
func parseTagged(raw string, re *regexp.Regexp, guess func(tag string) Role) []Utterance {
	var utts []Utterance

	for _, line := range strings.Split(raw, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			text := strings.TrimSpace(line)
			if text != "" && len(utts) > 0 {
				utts[len(utts)-1].Text += " " + text
			}
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		utts = append(utts, Utterance{
			Index:   len(utts),
			Speaker: speakerLabel(re, m[1]),
			Text:    text,
			Role:    guess(m[1]),
		})
	}
	return utts
}

func speakerLabel(re *regexp.Regexp, tag string) string {
	if re == nottaTagRe {
		return "発言者" + tag
	}
	return "Speaker " + strings.ToUpper(tag)
}

// parseNottaCSV reads the Notta export layout: header row, then
// speaker, start, end, duration, text columns. Malformed rows are skipped.
func parseNottaCSV(raw string) []Utterance {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil || len(records) < 2 {
		return nil
	}

	var utts []Utterance
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		text := strings.TrimSpace(rec[4])
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(rec[0])
		role := RoleUnknown
		if speaker == "Speaker 1" {
			role = RoleDoctor
		} else if strings.HasPrefix(speaker, "Speaker ") {
			role = RolePatient
		}
		utts = append(utts, Utterance{
			Index:     len(utts),
			Speaker:   speaker,
			Text:      text,
			StartTime: strings.TrimSpace(rec[1]),
			EndTime:   strings.TrimSpace(rec[2]),
			Role:      role,
		})
	}
	return utts
}

// parseSRT reads subtitle blocks: index line, time-range line, text lines.
// Subtitles carry no speaker labels, so blocks alternate between two
// anonymous speakers and roles stay unknown until the classifier resolves
// them from content.
func parseSRT(raw string) []Utterance {
	var utts []Utterance

	for _, block := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		timeLine := strings.TrimSpace(lines[1])
		if !srtTimeRe.MatchString(timeLine) {
			continue
		}
		start, end, _ := strings.Cut(timeLine, "-->")
		text := strings.TrimSpace(strings.Join(lines[2:], " "))
		if text == "" {
			continue
		}
		utts = append(utts, Utterance{
			Index:     len(utts),
			Speaker:   srtSpeaker(len(utts)),
			Text:      text,
			StartTime: strings.TrimSpace(start),
			EndTime:   strings.TrimSpace(end),
			Role:      RoleUnknown,
		})
	}
	return utts
}

func srtSpeaker(index int) string {
	if index%2 == 0 {
		return "話者1"
	}
	return "話者2"
}

// parseMarkdownSummary reads bullet lines from an AI-generated summary.
// Summary lines have no attributable speaker.
func parseMarkdownSummary(raw string) []Utterance {
	var utts []Utterance

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "* ") {
			continue
		}
		text := strings.TrimSpace(trimmed[2:])
		if text == "" {
			continue
		}
		utts = append(utts, Utterance{
			Index:   len(utts),
			Speaker: "要約",
			Text:    text,
			Role:    RoleUnknown,
		})
	}
	return utts
}
