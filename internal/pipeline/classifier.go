package pipeline

import "strings"

// Classifier resolves speaker roles. Explicit textual markers win outright;
// otherwise each distinct speaker's content is scored against doctor-like and
// patient-like vocabularies, and content evidence overrides the parser's
// positional guess only when it actually distinguishes the speakers.
type Classifier struct {
	lexicon *RoleLexicon
}

// NewClassifier builds a role classifier over an immutable lexicon.
func NewClassifier(lexicon *RoleLexicon) *Classifier {
	return &Classifier{lexicon: lexicon}
}

type speakerEvidence struct {
	doctor  int
	patient int
	role    Role // explicit-marker assignment, RoleUnknown if none
}

// Classify resolves the Role of every utterance in place and returns the
// classification confidence: corroborating keyword matches relative to total
// utterances, capped at 0.95. Speakers with no distinguishing evidence keep
// the parser's guess, or stay Unknown.
func (c *Classifier) Classify(conv *ParsedConversation) float64 {
	if len(conv.Utterances) == 0 {
		return 0
	}

	evidence := map[string]*speakerEvidence{}
	order := []string{}
	for _, u := range conv.Utterances {
		ev, ok := evidence[u.Speaker]
		if !ok {
			ev = &speakerEvidence{role: explicitRole(u.Speaker)}
			evidence[u.Speaker] = ev
			order = append(order, u.Speaker)
		}
		ev.doctor += countAny(u.Text, c.lexicon.Doctor)
		ev.patient += countAny(u.Text, c.lexicon.Patient)
	}

	resolved := map[string]Role{}
	for speaker, ev := range evidence {
		if ev.role != RoleUnknown {
			resolved[speaker] = ev.role
		}
	}

	// Two anonymous speakers are classified relative to each other: the more
	// doctor-like one is the doctor and the other the patient.
	var open []string
	for _, s := range order {
		if _, done := resolved[s]; !done {
			open = append(open, s)
		}
	}
	if len(open) == 2 {
		a, b := evidence[open[0]], evidence[open[1]]
		netA, netB := a.doctor-a.patient, b.doctor-b.patient
		if netA != netB {
			if netA > netB {
				resolved[open[0]], resolved[open[1]] = RoleDoctor, RolePatient
			} else {
				resolved[open[0]], resolved[open[1]] = RolePatient, RoleDoctor
			}
		}
	} else {
		for _, s := range open {
			ev := evidence[s]
			switch {
			case ev.doctor > ev.patient:
				resolved[s] = RoleDoctor
			case ev.patient > ev.doctor:
				resolved[s] = RolePatient
			}
		}
	}

	for i := range conv.Utterances {
		u := &conv.Utterances[i]
		if role, ok := resolved[u.Speaker]; ok {
			u.Role = role
		}
		// No distinguishing evidence: the parser's guess stands.
	}

	corroborating := 0
	for speaker, role := range resolved {
		switch role {
		case RoleDoctor:
			corroborating += evidence[speaker].doctor
		case RolePatient:
			corroborating += evidence[speaker].patient
		}
	}

	return clamp(float64(corroborating)/float64(len(conv.Utterances)), 0, 0.95)
}

// explicitRole reads direct markers from a speaker label.
func explicitRole(speaker string) Role {
	switch {
	case strings.Contains(speaker, "医師"),
		strings.Contains(speaker, "先生"),
		strings.Contains(speaker, "Dr"):
		return RoleDoctor
	case strings.Contains(speaker, "患者"),
		strings.HasSuffix(speaker, "さん"):
		return RolePatient
	default:
		return RoleUnknown
	}
}
