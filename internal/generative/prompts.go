package generative

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const demographicsSystemPrompt = `You are an expert in advertising demographics analysis.
Given a product URL and additional context, analyze and return the TOP target demographic
information in JSON format with the following exact fields:
- gender: REQUIRED - The target gender (string: "Any", "Woman", or "Man")
- age_range: REQUIRED - An object with "min" and "max" fields (both integers or null). Valid age ranges are:
  "All" -> {"min": null, "max": null}, "13-24", "13-34", "13-49", "13-54", "13+", "18-24", "18-34",
  "18-49", "18-54", "18+", "21-34", "21-49", "21-54", "21+", "25-49", "25-54", "25+", "35-49",
  "35-54", "35+", "50+". A trailing "+" means "max" is null.
- language: OPTIONAL - An array of target languages or null. Use ONLY languages from this list:
  Albanian, Arabic, Basque, Bengali, Bulgarian, Catalan, Chinese (Simplified), Croatian, Czech, Danish,
  Dutch, English, Farsi, Finnish, French, Galician, German, Greek, Gujarati, Hebrew, Hindi, Hungarian,
  Indonesian, Irish, Italian, Japanese, Kannada, Korean, Latvian, Malay, Marathi, Norwegian,
  Norwegian Bokmål, Polish, Portuguese, Romanian, Russian, Serbian, Slovak, Spanish, Swedish, Tamil,
  Thai, Turkish, Ukrainian, Urdu.
- location: OPTIONAL (choose only if necessary) - An array of target locations or null.
  Examples: ["United States"], ["United States", "Canada"], ["Europe"], ["Global"].

CRITICAL:
- language and location must be arrays of strings (not a single string) or null.
- age_range must be an object with "min" and "max" fields. Use only the combinations listed above.

Return ONLY valid JSON with these four fields, no additional text or markdown formatting.`

const brandStyleSystemPrompt = `You are an expert in brand identity and visual design analysis.
Given a business website URL, browse and analyze the website to extract key brand style elements
that will be useful for creating advertisements. Return the information in JSON format with the
following exact fields:

- colors: REQUIRED - An array of 3-5 primary brand colors as hex codes in the format "#RRGGBB".
  Do NOT use color names. Prioritize colors that appear prominently in the design, logo or visuals.
- mood: REQUIRED - A single concise descriptor of the brand's emotional tone, e.g. "professional",
  "playful", "luxury", "minimalist", "energetic", "calm", "bold", "elegant", "tech-forward".
- font_style: REQUIRED - A font category matching the site's typography, e.g. "Modern Sans-Serif",
  "Elegant Serif", "Bold Geometric", "Playful Rounded", "Tech Monospace".
- slogan: OPTIONAL - The site's tagline, or a compelling new one. null if none fits.
- product_description: REQUIRED - 2-4 visually descriptive sentences about the product or service:
  what it is, key features, visual elements useful for an advertisement, and the type of product.

Return ONLY valid JSON with these five fields, no additional text or markdown formatting.`

const imageRequirements = " No text. No people. Product-focused. " +
	"Bottom third: simple/uncluttered for text overlay. " +
	"Upper two-thirds: product hero. Professional quality."

const (
	maxPromptLength      = 1024
	maxDescriptionLength = 400
	maxPromptColors      = 3
)

func demographicsUserPrompt(productURL, prompt string) string {
	return fmt.Sprintf("Product URL: %s\n\nCustom Prompt: %s\n\nPlease analyze this product and provide the ad demographics in JSON format.", productURL, prompt)
}

func brandStyleUserPrompt(productURL string) string {
	return fmt.Sprintf("Business Website URL: %s\n\n"+
		"Please browse this website and analyze its brand identity. Extract the colors, mood, font style, "+
		"slogan, and a detailed product description that would be useful for creating advertisements. "+
		"Return the analysis in JSON format.", productURL)
}

// ImagePrompt is the input of BuildImagePrompt.
type ImagePrompt struct {
	ProductURL         string
	ProductDescription string
	Colors             []string
	Mood               string
}

// BuildImagePrompt assembles the image generation prompt. The description
// is cut to 400 characters, at most three colors are used and the result
// never exceeds 1024 characters.
func BuildImagePrompt(p ImagePrompt) string {
	var parts []string
	if len(p.Colors) > 0 {
		parts = append(parts, "colors: "+strings.Join(p.Colors[:min(len(p.Colors), maxPromptColors)], ", "))
	}
	if p.Mood != "" {
		parts = append(parts, "mood: "+p.Mood)
	}
	style := ""
	if len(parts) > 0 {
		style = " Brand style: " + strings.Join(parts, ", ") + "."
	}

	focus := "Professional ad image for product at " + p.ProductURL
	if p.ProductDescription != "" {
		focus = "Professional ad image: " + truncate(p.ProductDescription, maxDescriptionLength)
	}

	prompt := focus + style + imageRequirements
	if len(prompt) > maxPromptLength && p.ProductDescription != "" {
		room := max(maxPromptLength-len(style)-len(imageRequirements)-50, 0)
		prompt = "Professional ad image: " + truncate(p.ProductDescription, room) + style + imageRequirements
	}
	return truncate(prompt, maxPromptLength)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripFences removes a surrounding markdown code block, which the chat
// model sometimes adds despite being told not to.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= 2 {
		return content
	}
	body := lines[1:]
	if strings.HasPrefix(strings.TrimSpace(body[len(body)-1]), "```") {
		body = body[:len(body)-1]
	}
	return strings.Join(body, "\n")
}
