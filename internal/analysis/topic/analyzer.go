package topic

import "strings"

// Label tags the health concern detected in a user utterance.
type Label string

const (
	General   Label = "general"
	Cold      Label = "cold"
	Headache  Label = "headache"
	Stomach   Label = "stomach"
	Sleep     Label = "sleep"
	Stress    Label = "stress"
	Fitness   Label = "fitness"
	Nutrition Label = "nutrition"
)

// Decision carries the winning topic and its keyword score.
type Decision struct {
	Topic Label
	Score int
}

var keywordBuckets = map[Label][]string{
	Cold: {
		"cold", "cough", "fever", "flu", "sore throat", "runny nose", "sneezing",
		"congestion", "chills", "sinus", "phlegm",
	},
	Headache: {
		"headache", "migraine", "head hurts", "head is pounding", "dizzy",
		"dizziness", "light sensitivity",
	},
	Stomach: {
		"stomach", "nausea", "vomit", "diarrhea", "constipation", "indigestion",
		"bloating", "acidity", "heartburn", "cramps", "belly",
	},
	Sleep: {
		"sleep", "insomnia", "can't sleep", "cannot sleep", "tired", "fatigue",
		"exhausted", "drowsy", "restless night",
	},
	Stress: {
		"stress", "anxious", "anxiety", "worried", "overwhelmed", "panic",
		"nervous", "burnout", "depressed", "low mood",
	},
	Fitness: {
		"exercise", "workout", "yoga", "gym", "running", "stretch", "muscle",
		"back pain", "joint", "posture", "sprain",
	},
	Nutrition: {
		"diet", "nutrition", "meal plan", "weight", "vitamin", "protein",
		"hydration", "appetite", "calories", "sugar",
	},
}

// scanOrder fixes tie-breaking so detection is deterministic for a given
// utterance.
var scanOrder = []Label{Cold, Headache, Stomach, Sleep, Stress, Fitness, Nutrition}

// Detect scores the utterance against each keyword bucket and returns the
// best-matching topic. An utterance with no matches maps to General.
func Detect(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Topic: General, Score: 0}
	}

	best := General
	bestScore := 0
	for _, label := range scanOrder {
		score := 0
		for _, word := range keywordBuckets[label] {
			if strings.Contains(normalized, word) {
				score += 3
			}
		}
		if score > bestScore {
			bestScore = score
			best = label
		}
	}

	return Decision{Topic: best, Score: bestScore}
}
