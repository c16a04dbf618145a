package models

import "strings"

type Category string

const (
	CategoryMusic     Category = "music"
	CategoryFood      Category = "food"
	CategoryTravel    Category = "travel"
	CategoryArt       Category = "art"
	CategoryLifestyle Category = "lifestyle"
)

// Categories lists every questionnaire category in display order.
var Categories = []Category{CategoryMusic, CategoryFood, CategoryTravel, CategoryArt, CategoryLifestyle}

// ExpectedCategories is the number of questionnaire steps a complete profile answers.
const ExpectedCategories = 5

var questionCategories = map[string]Category{
	"music-genres":        CategoryMusic,
	"food-cuisines":       CategoryFood,
	"travel-destinations": CategoryTravel,
	"art-styles":          CategoryArt,
	"lifestyle":           CategoryLifestyle,
}

// QuestionCategory maps a questionnaire question id to its preference category.
func QuestionCategory(questionID string) (Category, bool) {
	c, ok := questionCategories[questionID]
	return c, ok
}

// Preferences holds the option ids selected per category.
type Preferences struct {
	Music     []string `json:"music,omitempty" validate:"omitempty,dive,required,max=100"`
	Food      []string `json:"food,omitempty" validate:"omitempty,dive,required,max=100"`
	Travel    []string `json:"travel,omitempty" validate:"omitempty,dive,required,max=100"`
	Art       []string `json:"art,omitempty" validate:"omitempty,dive,required,max=100"`
	Lifestyle []string `json:"lifestyle,omitempty" validate:"omitempty,dive,required,max=100"`
}

func (p Preferences) Get(c Category) []string {
	switch c {
	case CategoryMusic:
		return p.Music
	case CategoryFood:
		return p.Food
	case CategoryTravel:
		return p.Travel
	case CategoryArt:
		return p.Art
	case CategoryLifestyle:
		return p.Lifestyle
	}
	return nil
}

func (p *Preferences) Set(c Category, values []string) {
	switch c {
	case CategoryMusic:
		p.Music = values
	case CategoryFood:
		p.Food = values
	case CategoryTravel:
		p.Travel = values
	case CategoryArt:
		p.Art = values
	case CategoryLifestyle:
		p.Lifestyle = values
	}
}

// Merge returns p with every category set in other overwritten. A nil
// category in other leaves p alone; an empty non-nil one clears it.
func (p Preferences) Merge(other Preferences) Preferences {
	merged := p
	for _, c := range Categories {
		values := other.Get(c)
		if values == nil {
			continue
		}
		if len(values) == 0 {
			merged.Set(c, nil)
			continue
		}
		merged.Set(c, append([]string(nil), values...))
	}
	return merged
}

func (p Preferences) Empty() bool {
	for _, c := range Categories {
		if len(p.Get(c)) > 0 {
			return false
		}
	}
	return true
}

// Summary renders "music: jazz, reggae; food: thai" for prompts.
func (p Preferences) Summary() string {
	parts := make([]string, 0, len(Categories))
	for _, c := range Categories {
		if values := p.Get(c); len(values) > 0 {
			parts = append(parts, string(c)+": "+strings.Join(values, ", "))
		}
	}
	return strings.Join(parts, "; ")
}
