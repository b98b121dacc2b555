package caption

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category selects the prompt template used for an image. Unknown
// categories fall back to interior, the workshop's dominant subject.
type Category string

const (
	CategoryInterior Category = "interior"
	CategoryPerson   Category = "person"
	CategoryObject   Category = "object"
	CategoryScene    Category = "scene"
	CategoryPeople   Category = "people"
	CategoryVehicle  Category = "vehicle"
	CategoryExterior Category = "exterior"
	CategoryAbstract Category = "abstract"
)

const contextPlaceholder = "{SEMANTIC_CONTEXT}"

// promptHeader and promptRules bracket every template; the middle
// section varies per category.
const promptHeader = `You are annotating images for LoRA fine-tuning of a Flux image model.
Output exactly ONE sentence, maximum 50 words, grounded only in visible evidence.

Your sentence MUST begin with: "{SEMANTIC_CONTEXT}"

`

const promptRules = `

Critical rules:
- Start EXACTLY with: {SEMANTIC_CONTEXT}
- No "photo of" or "image of"
- Maximum 50 words, aim for 40-50
- Single sentence only
- Output only the sentence`

var promptBodies = map[Category]string{
	CategoryInterior: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, showing) and describe in order:
1. Key architectural elements and spatial layout
2. Furniture, objects, and their arrangement
3. Materials, finishes, and colors
4. Lighting conditions and quality
5. Overall atmosphere or character

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with high vaulted ceilings and exposed beams, rows of modern workstations with ergonomic chairs arranged in open layout, polished concrete floors, floor-to-ceiling windows providing abundant natural light, creating bright collaborative atmosphere"`,

	CategoryPerson: `After "{SEMANTIC_CONTEXT}", add a natural connector word (wearing, with, in, showing) and describe in order:
1. Physical appearance and distinguishing features
2. Clothing, accessories, and style
3. Pose, gesture, or activity
4. Facial expression or mood
5. Background or setting context

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} wearing black turtleneck and blue jeans, standing with arms crossed in confident pose, slight smile and direct gaze, against minimalist white background with soft studio lighting creating professional portrait atmosphere"`,

	CategoryObject: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, made of, showing) and describe in order:
1. Overall shape and form
2. Materials, texture, and finish
3. Colors and visual details
4. Function or design purpose
5. Context or background setting

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with sleek minimalist design and rounded edges, brushed aluminum body with matte black accents, compact rectangular form, precision-engineered controls, photographed on white seamless background with soft diffused lighting highlighting premium build quality"`,

	CategoryScene: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, showing, under) and describe in order:
1. Main environmental elements and composition
2. Weather conditions or time of day
3. Natural or artificial lighting quality
4. Colors, atmosphere, and mood
5. Notable visual details or focal points

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with rolling green hills extending to distant mountains under partly cloudy sky, golden hour sunlight casting long shadows across pastoral landscape, scattered trees and winding dirt path, warm saturated colors creating serene peaceful atmosphere"`,

	CategoryPeople: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, engaged in, showing, working in) and describe in order:
1. Number and type of people (students, coworkers, group)
2. Their activity or interaction
3. Spatial arrangement and body language
4. Environment and visible objects
5. Lighting and overall atmosphere

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with five students engaged in collaborative discussion around large table, leaning forward with focused expressions, gesturing at shared design materials, bright modern classroom with whiteboards and task lighting creating productive energetic atmosphere"`,

	CategoryVehicle: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, showing, captured from) and describe in order:
1. Vehicle type and model characteristics
2. Viewing angle or perspective (front, side, three-quarter)
3. Surface materials, colors, and finish
4. Setting or environment context
5. Lighting conditions and visual impact

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with sleek aerodynamic body and distinctive LED headlights, captured from three-quarter front angle, glossy metallic silver paint with chrome accents, positioned in modern minimalist studio, dramatic side lighting highlighting sculptural surfacing and premium build quality"`,

	CategoryExterior: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, showing, captured at) and describe in order:
1. Building type and architectural features
2. Main materials and facade treatment
3. Surrounding context (street, landscape, sky)
4. Time of day and lighting conditions
5. Overall character or urban relationship

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with modern glass and steel facade featuring floor-to-ceiling windows and angular geometric form, surrounded by landscaped plaza with mature trees, captured at golden hour with warm sunlight illuminating translucent surfaces creating dynamic interplay of light and shadow"`,

	CategoryAbstract: `After "{SEMANTIC_CONTEXT}", add a natural connector word (with, featuring, showing, composed of) and describe in order:
1. Medium or technique (digital, watercolor, sketch, diagram)
2. Compositional structure (geometric, organic, grid-based)
3. Dominant colors and shapes
4. Texture, layering, or surface quality
5. Overall style or aesthetic mood

Aim for 40-50 words to provide rich, specific detail.

Example:
"{SEMANTIC_CONTEXT} with layered digital composition featuring intersecting geometric forms and organic flowing lines, bold primary colors contrasted with subtle gradients, smooth vector surfaces mixed with textured brush elements creating dynamic minimalist aesthetic with balanced tension between order and spontaneity"`,
}

// Prompts resolves a category to its full prompt text
type Prompts struct {
	overrides map[Category]string
}

// NewPrompts returns the built-in templates
func NewPrompts() *Prompts {
	return &Prompts{}
}

// LoadPromptOverrides reads a YAML file mapping category -> full prompt
// template. Overridden templates replace the built-in body wholesale
// but still go through placeholder substitution.
func LoadPromptOverrides(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt overrides: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt overrides: %w", err)
	}
	overrides := make(map[Category]string, len(raw))
	for name, text := range raw {
		category := ParseCategory(name)
		if string(category) != strings.ToLower(name) {
			return nil, fmt.Errorf("unknown prompt category: %s", name)
		}
		overrides[category] = text
	}
	return &Prompts{overrides: overrides}, nil
}

// ParseCategory maps a request string to a known category, defaulting
// to interior.
func ParseCategory(name string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(name))) {
	case CategoryPerson:
		return CategoryPerson
	case CategoryObject:
		return CategoryObject
	case CategoryScene:
		return CategoryScene
	case CategoryPeople:
		return CategoryPeople
	case CategoryVehicle:
		return CategoryVehicle
	case CategoryExterior:
		return CategoryExterior
	case CategoryAbstract:
		return CategoryAbstract
	default:
		return CategoryInterior
	}
}

// For builds the prompt for a category with the semantic context
// substituted in.
func (p *Prompts) For(category Category, semanticContext string) string {
	if p.overrides != nil {
		if tmpl, ok := p.overrides[category]; ok {
			return strings.ReplaceAll(tmpl, contextPlaceholder, semanticContext)
		}
	}
	body, ok := promptBodies[category]
	if !ok {
		body = promptBodies[CategoryInterior]
	}
	return strings.ReplaceAll(promptHeader+body+promptRules, contextPlaceholder, semanticContext)
}
