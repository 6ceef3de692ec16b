// Package e2e runs a kotae server end to end against a generated multi-topic site.
package e2e

import (
	"fmt"
	"html"
	"strings"
)

// Section is one topic on the corpus page. Signature is a word that appears in
// no other section.
type Section struct {
	Title     string
	Signature string
	Content   string
}

// QueryCase is a question whose retrieved sources must include the section
// carrying Signature.
type QueryCase struct {
	Query       string
	Signature   string
	Description string
}

// Corpus is a set of sections rendered as one HTML page, plus the queries run against it.
type Corpus struct {
	Sections []Section
	Cases    []QueryCase
}

var topics = []Section{
	{"Bees", "pollination", "Honey bees live in colonies ruled by a single queen. Their pollination work supports most flowering crops."},
	{"Glaciers", "glacier", "A glacier forms where snow accumulates faster than it melts. Each glacier slowly flows downhill under its own weight."},
	{"Violins", "violin", "The violin has four strings tuned in fifths. A violin bow is strung with horsehair and rosin."},
	{"Sourdough", "sourdough", "Sourdough bread rises with wild yeast and lactobacilli. A sourdough starter must be fed flour and water daily."},
	{"Tides", "tides", "Ocean tides follow the pull of the moon and the sun. Spring tides occur when both bodies align."},
	{"Origami", "origami", "Origami folds a single square of paper into a figure. Traditional origami avoids cuts and glue."},
	{"Penguins", "penguins", "Emperor penguins breed during the Antarctic winter. Male penguins keep the egg warm on their feet."},
	{"Volcanoes", "magma", "Volcanoes erupt when magma reaches the surface. Magma that cools underground forms granite."},
	{"Chess", "checkmate", "Chess is won by checkmate of the opposing king. A checkmate ends the game immediately."},
	{"Coffee", "espresso", "Espresso is brewed by forcing hot water through fine grounds. A good espresso has a layer of crema."},
	{"Lighthouses", "lighthouse", "A lighthouse warns ships away from rocks at night. Each lighthouse flashes its own light pattern."},
	{"Rainbows", "rainbow", "A rainbow appears when sunlight refracts through raindrops. The rainbow always faces away from the sun."},
	{"Tea", "matcha", "Matcha is powdered green tea whisked into hot water. Ceremonial matcha is grown in shade."},
	{"Comets", "comet", "A comet is a ball of ice and dust orbiting the sun. Its tail points away from the sun as the comet warms."},
	{"Cartography", "cartographer", "A cartographer draws maps from surveys and aerial photos. Every cartographer chooses a projection."},
	{"Beavers", "beavers", "Beavers build dams from branches and mud. The ponds beavers create shelter many other species."},
	{"Bonsai", "bonsai", "Bonsai trees are kept small by pruning roots and branches. A bonsai can live for centuries."},
	{"Caves", "stalactites", "Stalactites hang from cave ceilings and grow drop by drop. Stalactites form from dissolved limestone."},
	{"Sailing", "sailboat", "A sailboat can travel upwind by tacking. The keel keeps a sailboat from drifting sideways."},
	{"Typewriters", "typewriter", "The typewriter made office writing faster in the nineteenth century. A typewriter strikes inked ribbon onto paper."},
	{"Owls", "owls", "Owls hunt at night using silent flight. Many owls can turn their heads very far around."},
	{"Marathons", "marathon", "A marathon covers a little over forty two kilometres. Runners train for months before a marathon."},
	{"Glassblowing", "glassblower", "A glassblower shapes molten glass with a long pipe. The glassblower reheats the piece in a furnace."},
	{"Deserts", "dunes", "Sand dunes move slowly as wind carries grains over the crest. Some dunes sing when sand slides down."},
	{"Bridges", "suspension", "A suspension bridge hangs its deck from cables between towers. Suspension designs span the longest gaps."},
	{"Cheese", "cheddar", "Cheddar is a hard cheese first made in an English village. Aged cheddar grows sharper over time."},
	{"Kites", "kite", "A kite flies when wind pushes against its tilted surface. The kite line holds it at an angle."},
	{"Coral", "coral", "Coral reefs are built by tiny animals called polyps. Warm water can bleach coral."},
	{"Telescopes", "telescope", "A telescope gathers light with a lens or mirror. A bigger telescope reveals fainter stars."},
	{"Pottery", "kiln", "Clay pots are fired in a kiln at high temperature. The kiln turns soft clay into hard ceramic."},
}

// BuildCorpus returns the topic corpus with one query per section.
func BuildCorpus() *Corpus {
	c := &Corpus{Sections: topics}
	for _, s := range topics {
		c.Cases = append(c.Cases, QueryCase{
			Query:       fmt.Sprintf("%s %s", s.Title, s.Signature),
			Signature:   s.Signature,
			Description: strings.ToLower(s.Title),
		})
	}
	return c
}

// HTML renders the corpus as a single article page.
func (c *Corpus) HTML() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>Field Notes</title></head><body>")
	b.WriteString("<nav><a href=\"/\">Home</a> <a href=\"/about\">About</a></nav><article>")
	for _, s := range c.Sections {
		fmt.Fprintf(&b, "<section><h2>%s</h2><p>%s</p></section>", html.EscapeString(s.Title), html.EscapeString(s.Content))
	}
	b.WriteString("</article><footer>Copyright notice</footer></body></html>")
	return b.String()
}

// sectionsContaining returns the titles of the sections whose content mentions word.
func (c *Corpus) sectionsContaining(word string) []string {
	var out []string
	for _, s := range c.Sections {
		if containsWord(s.Title+" "+s.Content, word) {
			out = append(out, s.Title)
		}
	}
	return out
}

func containsWord(text, word string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}
