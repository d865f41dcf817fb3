package reply

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/divyam8333/CureBot/internal/analysis/topic"
)

// Generator composes assistant replies from a fixed template. It performs no
// timing and no I/O; pacing belongs to the stream engine.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

var closingHints = []string{
	"I can summarize, explain, or provide examples.",
	"Use Shift+Enter for a newline.",
	"You can attach reports or prescriptions using the button or drag-and-drop.",
	"Rename or delete chats from the top right.",
}

// guidance holds the per-topic care blocks, following the assistant's house
// structure: likely cause, supportive care, diet, movement, then the
// disclaimer appended to every reply.
var guidance = map[topic.Label]string{
	topic.Cold: "This sounds like a common cold or mild flu. Rest, stay warm, and drink warm fluids.\n" +
		"Diet: light soups, citrus fruits, honey with warm water.\n" +
		"Movement: skip workouts until the fever is gone; gentle breathing exercises are fine.",
	topic.Headache: "Tension headaches are the most frequent kind. Rest your eyes, dim the lights, and stay hydrated.\n" +
		"Diet: regular meals, plenty of water, go easy on caffeine.\n" +
		"Movement: neck and shoulder stretches, a short walk in fresh air.",
	topic.Stomach: "Digestive upsets usually settle with bland food and fluids.\n" +
		"Diet: bananas, rice, toast, curd; avoid spicy and oily food for a few days.\n" +
		"Movement: a relaxed walk after meals; avoid strenuous exercise until it settles.",
	topic.Sleep: "Poor sleep often improves with a steady routine. Keep consistent hours and avoid screens before bed.\n" +
		"Diet: no caffeine after mid-afternoon; a light dinner helps.\n" +
		"Movement: daytime exercise and evening stretching or yoga nidra.",
	topic.Stress: "Stress responds well to small, regular habits. Short breaks, slow breathing, and talking it through all help.\n" +
		"Diet: regular meals, limit caffeine and sugar spikes.\n" +
		"Movement: brisk walks, yoga, or any activity you actually enjoy.",
	topic.Fitness: "Build up gradually and let soreness guide the pace.\n" +
		"Diet: enough protein and water around workouts.\n" +
		"Movement: warm up first, stretch after, and rest a strained area for a couple of days.",
	topic.Nutrition: "A balanced plate beats any single superfood: half vegetables and fruit, a quarter protein, a quarter whole grains.\n" +
		"Keep a regular meal rhythm and drink water through the day.",
}

const disclaimer = "This is general guidance, not a medical diagnosis - please consult a doctor for anything persistent or severe."

// Generate composes the full reply for a user input. It is pure and
// deterministic given rng: the same input, context note, and random source
// always produce the same string.
func (g *Generator) Generate(userInput, contextNote string, rng *rand.Rand) string {
	var b strings.Builder

	b.WriteString("Here's a helpful response:\n\n")
	if userInput != "" {
		fmt.Fprintf(&b, "You said: \"%s\".\n", userInput)
	}
	if contextNote != "" {
		b.WriteString(contextNote)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if block, ok := guidance[topic.Detect(userInput).Topic]; ok {
		b.WriteString(block)
		b.WriteString("\n\n")
	}

	b.WriteString("• Tip: Ask me to outline a 7-day diet plan or a simple exercise routine.\n")
	b.WriteString("• Tip: For anything chronic or recurring, attach your medical reports.\n")
	b.WriteString("• Tip: Click the copy icon on any message to copy it.\n\n")
	b.WriteString(disclaimer)
	b.WriteString("\n\n")
	b.WriteString(closingHints[rng.Intn(len(closingHints))])

	return b.String()
}
