package engine

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/stats"

	"github.com/google/uuid"
)

// GeneratorConfig controls the shape and size of a generated hotel.
type GeneratorConfig struct {
	HotelID      string
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Count        int    // number of runs
	Seed         int64
	Now          time.Time
}

type areaDef struct {
	name      string
	kind      string
	templates []templateDef
}

type templateDef struct {
	name     string
	sections map[string][]questionDef
}

type questionDef struct {
	text, tag, class string
}

var catalog = []areaDef{
	{name: "Housekeeping", kind: "rooms", templates: []templateDef{
		{name: "Daily Room Check", sections: map[string][]questionDef{
			"Bathroom": {
				{"Towels replaced", "linen", "standard"},
				{"Shower drain clear", "plumbing", "maintenance"},
				{"Amenities restocked", "", "standard"},
			},
			"Bedroom": {
				{"Bed made to standard", "linen", "standard"},
				{"Smoke detector light on", "fire", "safety"},
				{"Minibar counted", "", ""},
			},
		}},
		{name: "Deep Clean", sections: map[string][]questionDef{
			"Bathroom": {
				{"Grout free of mould", "hygiene", "health"},
				{"Extractor fan clean", "", "maintenance"},
			},
		}},
	}},
	{name: "Kitchen", kind: "fnb", templates: []templateDef{
		{name: "HACCP Opening", sections: map[string][]questionDef{
			"Cold Storage": {
				{"Fridge below 5C", "temperature", "health"},
				{"Food labelled and dated", "labelling", "health"},
			},
			"Safety": {
				{"Fire blanket accessible", "fire", "safety"},
				{"First aid kit stocked", "", "safety"},
			},
		}},
	}},
	{name: "Front Office", kind: "guest", templates: []templateDef{
		{name: "Lobby Walkthrough", sections: map[string][]questionDef{
			"Lobby": {
				{"Floors dry and clean", "hygiene", "standard"},
				{"Emergency exits unobstructed", "fire", "safety"},
				{"Brochures stocked", "", ""},
			},
		}},
	}},
	{name: "Engineering", kind: "back", templates: []templateDef{
		{name: "Plant Room", sections: map[string][]questionDef{
			"Safety": {
				{"Extinguishers in date", "fire", "safety"},
				{"Boiler pressure logged", "", "maintenance"},
			},
		}},
	}},
}

var memberNames = []string{"Ana Ruiz", "Ben Okafor", "Chen Li", "Dana Novak", "Eli Haddad", "Fatima Zahra"}

type generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// Generate builds a synthetic hotel snapshot. The same seed yields the same snapshot.
func Generate(cfg GeneratorConfig) (*audit.Snapshot, error) {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.HotelID == "" {
		return nil, fmt.Errorf("hotel id is required")
	}
	g := &generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}

	snap := &audit.Snapshot{HotelID: cfg.HotelID, FetchedAt: cfg.Now}
	questionsByTemplate := make(map[string][]audit.Question)

	for i, a := range catalog {
		order := i + 1
		area := audit.Area{ID: g.id(), Name: a.name, Type: a.kind, SortOrder: &order}
		snap.Areas = append(snap.Areas, area)

		for _, t := range a.templates {
			tpl := audit.Template{ID: g.id(), Name: t.name, AreaID: area.ID, Active: true}
			snap.Templates = append(snap.Templates, tpl)

			sort := 0
			for _, secName := range sortedKeys(t.sections) {
				sort++
				sec := audit.Section{ID: g.id(), Name: secName, TemplateID: tpl.ID, SortOrder: sort}
				snap.Sections = append(snap.Sections, sec)
				for _, q := range t.sections[secName] {
					question := audit.Question{
						ID: g.id(), Text: q.text, Tag: q.tag, Classification: q.class,
						SectionID: sec.ID, Active: true,
					}
					snap.Questions = append(snap.Questions, question)
					questionsByTemplate[tpl.ID] = append(questionsByTemplate[tpl.ID], question)
				}
			}
		}
	}

	for _, name := range memberNames {
		snap.Members = append(snap.Members, audit.Member{ID: g.id(), Name: name, Position: "Supervisor"})
	}

	// Runs are spread evenly over the year before Now.
	span := 365 * 24 * time.Hour
	for i := 0; i < cfg.Count; i++ {
		tpl := snap.Templates[g.rng.Intn(len(snap.Templates))]
		executed := cfg.Now.Add(-span + time.Duration(float64(span)*(float64(i)+g.rng.Float64())/float64(cfg.Count)))
		run := audit.Run{
			ID:         g.id(),
			HotelID:    cfg.HotelID,
			AreaID:     tpl.AreaID,
			TemplateID: tpl.ID,
			ExecutedAt: executed.Truncate(time.Minute),
			Status:     audit.StatusSubmitted,
		}
		if g.rng.Float64() < 0.9 {
			run.MemberID = snap.Members[g.rng.Intn(len(snap.Members))].ID
		}
		if g.rng.Float64() < 0.05 {
			run.Status = "draft"
		}

		failRate := g.failRate(i)
		questions := questionsByTemplate[tpl.ID]
		var answers []audit.Answer
		for _, q := range questions {
			var v audit.Value
			switch r := g.rng.Float64(); {
			case r < failRate:
				v = audit.Fail
			case r < failRate+0.05:
				v = audit.NA
			default:
				v = audit.Pass
			}
			answers = append(answers, audit.Answer{RunID: run.ID, QuestionID: q.ID, Result: audit.StrPtr(string(v))})
		}
		run.Score = stats.CalculateScore(questions, answers).Score
		snap.Runs = append(snap.Runs, run)
		snap.Answers = append(snap.Answers, answers...)
	}

	return snap, nil
}

// failRate is the chance of a FAIL answer for the i-th run.
func (g *generator) failRate(i int) float64 {
	base := 0.08
	switch g.cfg.Scenario {
	case "chaos":
		base = 0.2
		if g.rng.Float64() < 0.15 {
			base = 0.6 // a bad shift
		}
	case "drift":
		base = 0.05 + 0.3*float64(i)/float64(max(1, g.cfg.Count))
	}

	if g.cfg.Distribution == "weibull" {
		return math.Min(0.95, base*weibullSample(g.rng, 1.5, 1.0))
	}
	return base
}

func (g *generator) id() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		// rand.Rand never fails to read.
		panic(err)
	}
	return id.String()
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func sortedKeys(m map[string][]questionDef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
