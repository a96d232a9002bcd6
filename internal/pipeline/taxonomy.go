package pipeline

import "regexp"

// Category is one sub-category of a SOAP taxonomy: a label for the section
// heading plus the keywords that pull an utterance into it. Categories are
// evaluated in declaration order by a single matching routine.
type Category struct {
	Name     string
	Label    string
	Keywords []string
}

// Taxonomy holds the four curated keyword vocabularies driving rule-based
// SOAP extraction. Instances are immutable and shared read-only across
// concurrent pipeline invocations.
type Taxonomy struct {
	Subjective []Category
	Objective  []Category
	Assessment []Category
	Plan       []Category
}

// DefaultTaxonomy returns the hand-curated dental vocabulary.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Subjective: []Category{
			{Name: "acute_pain", Label: "主訴・症状", Keywords: []string{
				"激痛", "ズキズキ", "脈打つ", "突然の痛み", "痛い", "痛み", "痛く",
			}},
			{Name: "chronic_pain", Label: "主訴・症状", Keywords: []string{
				"鈍痛", "ジンジン", "いつも痛", "継続的",
			}},
			{Name: "triggered_pain", Label: "主訴・症状", Keywords: []string{
				"噛むと痛", "触ると痛", "叩くと痛",
			}},
			{Name: "sensitivity", Label: "主訴・症状", Keywords: []string{
				"しみる", "しみて", "キーン", "冷たいもの", "甘いもの", "知覚過敏",
			}},
			{Name: "discomfort", Label: "症状の詳細", Keywords: []string{
				"違和感", "気になる", "腫れぼったい", "重い感じ", "つらい", "困って",
				"ひどい", "不安", "心配", "口臭", "出血", "腫れ",
			}},
			{Name: "history", Label: "現病歴", Keywords: []string{
				"週間前", "日前", "ヶ月前", "か月前", "昨日から", "前から",
			}},
		},
		Objective: []Category{
			{Name: "examination", Label: "検査所見", Keywords: []string{
				"視診", "触診", "打診", "冷水診", "電気診", "EPT", "プロービング",
				"レントゲン", "X線", "診査",
			}},
			{Name: "clinical", Label: "臨床所見", Keywords: []string{
				"腫脹", "発赤", "出血", "膿", "動揺", "破折", "変色", "摩耗",
				"認めます", "認められ", "所見",
			}},
			{Name: "measurements", Label: "測定値", Keywords: []string{
				"mm", "BOP", "PPD", "CAL", "ポケット",
			}},
			{Name: "radiographic", Label: "画像所見", Keywords: []string{
				"透過像", "骨吸収", "根尖病変", "歯槽硬線",
			}},
		},
		Assessment: []Category{
			{Name: "caries", Label: "診断・病態評価", Keywords: []string{
				"う蝕", "虫歯", "C1", "C2", "C3", "C4", "カリエス",
			}},
			{Name: "periodontal", Label: "診断・病態評価", Keywords: []string{
				"歯肉炎", "歯周炎", "歯周病",
			}},
			{Name: "endodontic", Label: "診断・病態評価", Keywords: []string{
				"歯髄炎", "歯髄", "根尖性歯周炎", "神経",
			}},
			{Name: "judgement", Label: "診断・病態評価", Keywords: []string{
				"診断", "考えられ", "思われ", "可能性", "咬合性外傷", "歯冠破折",
			}},
		},
		Plan: []Category{
			{Name: "restorative", Label: "治療計画", Keywords: []string{
				"充填", "インレー", "クラウン", "ブリッジ", "コンポジット", "レジン",
				"修復", "削",
			}},
			{Name: "endodontic", Label: "治療計画", Keywords: []string{
				"根管治療", "抜髄", "感染根管", "根管充填",
			}},
			{Name: "surgical", Label: "治療計画", Keywords: []string{
				"抜歯", "歯周外科", "フラップ", "歯肉切除",
			}},
			{Name: "preventive", Label: "患者指導", Keywords: []string{
				"予防", "フッ化物", "シーラント", "ブラッシング", "PMTC", "控え",
			}},
			{Name: "scheduling", Label: "次回予約", Keywords: []string{
				"次回", "来週", "予約", "定期検診", "メンテナンス", "経過観察", "再評価",
			}},
		},
	}
}

// sectionPlaceholders are substituted when a section has no matched evidence.
// Sections are never blank by contract.
var sectionPlaceholders = map[string]string{
	"S": "患者からの主観的症状の訴えが記録されていません。追加の問診が必要です。",
	"O": "医師による客観的所見が記録されていません。診査記録の追加が必要です。",
	"A": "評価・診断に足る情報がありません。追加の診査が必要です。",
	"P": "治療計画の情報が不足しています。次回診察時に策定が必要です。",
}

// ValidationLexicon drives the dental-relevance gate. NonDental matches are
// weighted double when scoring contamination.
type ValidationLexicon struct {
	Dental               []string
	NonDental            []string
	ConversationPatterns []*regexp.Regexp
}

// DefaultValidationLexicon returns the curated domain/contamination vocabulary.
func DefaultValidationLexicon() *ValidationLexicon {
	return &ValidationLexicon{
		Dental: []string{
			"歯", "口", "虫歯", "歯医者", "歯科", "治療", "患者", "医師", "先生", "診療",
			"痛い", "痛み", "しみる", "腫れ", "出血", "噛む", "口臭", "ズキズキ", "ジンジン",
			"違和感", "気になる", "激痛", "鈍痛", "冷たい", "甘い",
			"抜歯", "詰め物", "被せ物", "根管", "歯周病", "歯石", "歯垢", "カリエス", "う蝕",
			"充填", "インレー", "クラウン", "ブリッジ", "インプラント", "義歯", "入れ歯",
			"奥歯", "前歯", "歯茎", "歯肉", "親知らず", "乳歯", "永久歯",
			"レントゲン", "X線", "診察", "検査", "確認", "様子", "状態",
			"症状", "病気", "健康", "薬", "麻酔", "注射", "処方", "通院", "予約", "次回",
		},
		NonDental: []string{
			"function()", "class:", "import ", "export ", "= new ", "console.log",
			"<script>", "</script>", "public class", "private static", "void main",
			"int main", "String[]", "boolean",
			"GET /api/", "POST /api/", "Content-Type:", "Authorization:", "Bearer token",
		},
		ConversationPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)speaker\s*[ab][:：]`),
			regexp.MustCompile(`発言者\d+`),
			regexp.MustCompile(`医師|先生|Dr\.`),
			regexp.MustCompile(`患者|さん`),
			regexp.MustCompile(`主訴|症状|痛み`),
		},
	}
}

// RoleLexicon separates doctor-like from patient-like speech for content-based
// role classification.
type RoleLexicon struct {
	Doctor  []string
	Patient []string
}

// DefaultRoleLexicon returns the directive/clinical vs symptom/request sets.
func DefaultRoleLexicon() *RoleLexicon {
	return &RoleLexicon{
		Doctor: []string{
			"診察", "検査", "確認", "診て", "見て", "治療", "処置",
			"レントゲン", "様子", "大丈夫", "問題", "状態", "所見", "診断",
			"麻酔", "削り", "ましょう",
		},
		Patient: []string{
			"痛い", "痛み", "しみる", "気になる", "違和感", "お願い",
			"ありがとう", "心配", "不安", "困って", "つらい", "でしょうか",
		},
	}
}

// QualityLexicon drives the consultation quality metrics. Every phrase list
// is occurrence-counted so repeated signals move the score.
type QualityLexicon struct {
	Affirmative    []string
	Hesitation     []string
	Understanding  []string
	Confusion      []string
	TreatmentTopic []string
	CostTopic      []string
	Gratitude      []string
}

// DefaultQualityLexicon returns the curated consultation marker phrases.
func DefaultQualityLexicon() *QualityLexicon {
	return &QualityLexicon{
		Affirmative:    []string{"はい", "お願いします", "やります", "受けます", "同意", "よろしく", "そうします"},
		Hesitation:     []string{"考えさせて", "迷って", "不安", "心配", "高い", "費用が"},
		Understanding:  []string{"分かりました", "わかりました", "なるほど", "理解", "わかります"},
		Confusion:      []string{"分からない", "わからない", "よくわからない", "難しい"},
		TreatmentTopic: []string{"治療", "処置", "次回", "予約"},
		CostTopic:      []string{"費用", "料金", "保険"},
		Gratitude:      []string{"ありがとう"},
	}
}

// medicalTerms is the fixed list used for terminology-density scoring.
var medicalTerms = []string{"診断", "治療", "所見", "症状", "検査", "処置", "評価"}

// shortAcks are acknowledgement fragments excluded from SOAP extraction.
var shortAcks = []string{"はい", "そうです", "ええ", "うん", "お願いします", "ありがとうございま", "分かりました", "わかりました"}
