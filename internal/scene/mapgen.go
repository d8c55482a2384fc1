package scene

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/storytown/internal/story"
)

// Map canvas dimensions. The frontend renders rooms and paths into this box.
const (
	mapWidth  = 800
	mapHeight = 600
)

type roomTemplate struct {
	id    string
	name  string
	color string
}

// Room palettes per map type. Generation picks a prefix of each list.
var roomTemplates = map[string][]roomTemplate{
	"town": {
		{"square", "Town Square", "#d9b38c"},
		{"shop", "General Store", "#c68642"},
		{"tavern", "The Rusty Lantern", "#8c6239"},
		{"station", "Old Station", "#7a7a7a"},
		{"chapel", "Hillside Chapel", "#b0a38f"},
	},
	"forest": {
		{"clearing", "Sunny Clearing", "#7cb342"},
		{"grove", "Ancient Grove", "#558b2f"},
		{"stream", "Shallow Stream", "#4fc3f7"},
		{"camp", "Abandoned Camp", "#8d6e63"},
	},
	"building": {
		{"lobby", "Lobby", "#cfd8dc"},
		{"office", "Open Office", "#b0bec5"},
		{"archive", "Archive Room", "#90a4ae"},
		{"roof", "Rooftop", "#78909c"},
	},
	"dungeon": {
		{"entrance", "Collapsed Entrance", "#6d6d6d"},
		{"hall", "Pillared Hall", "#5a5a5a"},
		{"crypt", "Flooded Crypt", "#4a5a6a"},
		{"vault", "Sealed Vault", "#8a7a4a"},
	},
}

var decorationKinds = map[string]string{
	"town":     "lamp",
	"forest":   "tree",
	"building": "plant",
	"dungeon":  "torch",
}

var backgroundColors = map[string]string{
	"town":     "#e8dcc8",
	"forest":   "#dcedc8",
	"building": "#eceff1",
	"dungeon":  "#37474f",
}

var ambientEffects = map[string][]string{
	"town":     {"birdsong", "distant chatter"},
	"forest":   {"rustling leaves", "birdsong"},
	"building": {"humming vents"},
	"dungeon":  {"dripping water", "echoes"},
}

// Decoration is a purely cosmetic map element.
type Decoration struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Layout is the full render description of a generated map.
type Layout struct {
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	BackgroundColor string          `json:"background_color"`
	Structure       story.Structure `json:"structure"`
	Decorations     []Decoration    `json:"decorations,omitempty"`
	AmbientEffects  []string        `json:"ambient_effects,omitempty"`
}

// GenerateStructure builds a default room layout for a map type: three to
// five rooms on a grid, chained together with mutual connections. Unknown
// map types fall back to town.
func GenerateStructure(mapType string, rng *rand.Rand) story.Structure {
	templates, ok := roomTemplates[mapType]
	if !ok {
		mapType = "town"
		templates = roomTemplates["town"]
	}

	n := 3 + rng.Intn(len(templates)-2)
	if n > len(templates) {
		n = len(templates)
	}

	rooms := make([]story.Room, 0, n)
	for i := 0; i < n; i++ {
		t := templates[i]
		rooms = append(rooms, story.Room{
			ID:     t.id,
			Name:   t.name,
			Color:  t.color,
			X:      150 + (i%3)*200,
			Y:      150 + (i/3)*200,
			Width:  120,
			Height: 120,
		})
	}

	// Chain neighbors both ways so every room is reachable.
	for i := 0; i < n-1; i++ {
		rooms[i].Connections = append(rooms[i].Connections, rooms[i+1].ID)
		rooms[i+1].Connections = append(rooms[i+1].Connections, rooms[i].ID)
	}

	return story.Structure{MapType: mapType, Rooms: rooms}
}

// GenerateLayout wraps a structure with its render cosmetics: background,
// ambient effects, and noise-scattered decorations between the rooms.
func GenerateLayout(structure story.Structure, seed int64) Layout {
	noise := opensimplex.NewNormalized(seed)
	kind := decorationKinds[structure.MapType]
	if kind == "" {
		kind = "lamp"
	}

	var decorations []Decoration
	const cell = 40
	for y := cell; y < mapHeight; y += cell {
		for x := cell; x < mapWidth; x += cell {
			if noise.Eval2(float64(x)/120, float64(y)/120) < 0.62 {
				continue
			}
			inRoom := false
			for _, r := range structure.Rooms {
				if r.Contains(x, y) {
					inRoom = true
					break
				}
			}
			if !inRoom {
				decorations = append(decorations, Decoration{Kind: kind, X: x, Y: y})
			}
		}
	}

	bg := backgroundColors[structure.MapType]
	if bg == "" {
		bg = backgroundColors["town"]
	}

	return Layout{
		Width:           mapWidth,
		Height:          mapHeight,
		BackgroundColor: bg,
		Structure:       structure,
		Decorations:     decorations,
		AmbientEffects:  ambientEffects[structure.MapType],
	}
}

// randomColor picks an agent marker color.
func randomColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%06x", rng.Intn(0xffffff+1))
}
