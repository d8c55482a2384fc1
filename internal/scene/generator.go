// Package scene turns a free-text scene description into a complete,
// playable story record: structure, agents, outline, and map cosmetics.
package scene

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/talgya/storytown/internal/llm"
	"github.com/talgya/storytown/internal/story"
)

// PlaceKeywords are scanned out of descriptions to pick a map type.
var PlaceKeywords = map[string]string{
	"town":    "town",
	"village": "town",
	"market":  "town",
	"forest":  "forest",
	"woods":   "forest",
	"grove":   "forest",
	"office":  "building",
	"tower":   "building",
	"mansion": "building",
	"dungeon": "dungeon",
	"cave":    "dungeon",
	"ruins":   "dungeon",
}

var (
	nameRe = regexp.MustCompile(`\b[A-Z][a-z]{1,}\b`)
	verbRe = regexp.MustCompile(`\b[a-z]{3,}ing\b|\b[a-z]{3,}ed\b`)
)

// Stock character names, used when the description mentions none.
var defaultNames = []string{
	"Mara", "Theo", "Ines", "Bram", "Sylvie", "Otto", "Petra", "Juno",
}

var defaultTraits = []string{
	"curious", "cautious", "cheerful", "stubborn", "dreamy", "practical",
	"suspicious", "generous",
}

var defaultGoals = []string{
	"find out what changed in town",
	"keep the shop running another week",
	"make a new friend",
	"finish a long-overdue errand",
	"uncover an old secret",
	"avoid trouble at all costs",
}

// Elements are the pieces scraped from a scene description.
type Elements struct {
	Names   []string
	MapType string
	Verbs   []string
}

// ExtractElements scrapes names, a map type, and activity verbs from a
// description. Crude by design; the result only seeds generation.
func ExtractElements(desc string) Elements {
	var el Elements

	seen := make(map[string]bool)
	for _, m := range nameRe.FindAllString(desc, -1) {
		if !seen[m] {
			seen[m] = true
			el.Names = append(el.Names, m)
		}
	}

	lower := strings.ToLower(desc)
	for kw, mt := range PlaceKeywords {
		if strings.Contains(lower, kw) {
			el.MapType = mt
			break
		}
	}
	if el.MapType == "" {
		el.MapType = "town"
	}

	el.Verbs = verbRe.FindAllString(lower, -1)
	return el
}

// Generator produces complete story records from descriptions.
type Generator struct {
	client  *llm.Client
	outline *OutlineGenerator
	rng     *rand.Rand
}

// NewGenerator creates a generator. A nil client disables model-backed
// outline generation; templates are used instead.
func NewGenerator(client *llm.Client, seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		client:  client,
		outline: NewOutlineGenerator(client, rng),
		rng:     rng,
	}
}

// GenerateComprehensive builds a full story record: agents named from the
// description (stock names filling gaps), an outline with its scene
// structure, and the story config. The returned record is ready to persist
// and simulate.
func (g *Generator) GenerateComprehensive(desc string, agentCount int, useLLM bool, maxSteps int) story.Record {
	if agentCount <= 0 {
		agentCount = 3
	}
	if maxSteps <= 0 {
		maxSteps = 30
	}

	el := ExtractElements(desc)
	agents := g.buildAgents(el, agentCount, useLLM)
	outline := g.outline.Generate(desc, el.MapType, agents, maxSteps, useLLM)

	generatedBy := "template"
	if useLLM && g.client.Enabled() {
		generatedBy = "llm"
	}

	return story.Record{
		Scene: story.Scene{
			Type:        outline.SceneStructure.MapType,
			Description: desc,
			Structure:   outline.SceneStructure,
			GeneratedBy: generatedBy,
		},
		Agents:  agents,
		Outline: outline,
		Config: story.Config{
			SceneDescription: desc,
			AgentCount:       agentCount,
			AutoPlay:         false,
			ShowBubbles:      true,
			AnimationSpeed:   5,
			UseLLM:           useLLM,
			MaxSteps:         maxSteps,
		},
		UseLLM: useLLM,
	}
}

func (g *Generator) buildAgents(el Elements, count int, useLLM bool) []story.Agent {
	names := append([]string(nil), el.Names...)
	for _, n := range defaultNames {
		if len(names) >= count {
			break
		}
		dup := false
		for _, existing := range names {
			if existing == n {
				dup = true
				break
			}
		}
		if !dup {
			names = append(names, n)
		}
	}
	if len(names) > count {
		names = names[:count]
	}

	agents := make([]story.Agent, 0, len(names))
	for i, name := range names {
		traits := g.pickTraits(2)
		agents = append(agents, story.Agent{
			ID:          i,
			Name:        name,
			Personality: traits,
			Goal:        defaultGoals[g.rng.Intn(len(defaultGoals))],
			Energy:      100,
			Mood:        "neutral",
			Color:       randomColor(g.rng),
			LLMEnabled:  useLLM,
		})
	}
	return agents
}

func (g *Generator) pickTraits(n int) []string {
	idx := g.rng.Perm(len(defaultTraits))
	traits := make([]string, 0, n)
	for _, i := range idx[:n] {
		traits = append(traits, defaultTraits[i])
	}
	return traits
}
