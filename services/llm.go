package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"stylistapi/stylist"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// LLMModelName selects the Gemini model for a call.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

// ParseLLMModelName maps a configured model name back to the enum.
func ParseLLMModelName(name string) (LLMModelName, bool) {
	for _, m := range []LLMModelName{Pro25, Flash25, FlashLite25, Flash20} {
		if m.String() == name {
			return m, true
		}
	}
	return Flash20, false
}

func floatPointer(f float32) *float32 {
	return &f
}

func Int32Pointer(i int32) *int32 {
	return &i
}

var ErrContentViolation = errors.New("content violation")

type LLMResponse struct {
	Response           string `json:"response"`
	InputTokenCount    int32  `json:"input_token_count"`
	Thoughts           string `json:"thoughts"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
	IsTest             bool   `json:"is_test"`
}

type ResponseWithThoughts struct {
	Thoughts string `json:"thoughts"`
	Text     string `json:"text"`
}

// NewGoogleClient connects to the Gemini API with GOOGLE_API_KEY.
func NewGoogleClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
}

func tryUploadGoogleStorage(ctx context.Context, client *genai.Client, filePath string, newName *string) (*genai.File, error) {
	maxUploadTimes := 3
	var lastErr error
	for i := range maxUploadTimes {
		config := &genai.UploadFileConfig{}
		if newName != nil {
			config.Name = *newName
		}
		genFile, err := client.Files.UploadFromPath(ctx, filePath, config)
		if err == nil {
			log.Debug().Str("path", filePath).Int("attempt", i+1).Msg("file uploaded to google storage")
			return genFile, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("path", filePath).Int("attempt", i+1).Msg("google storage upload failed")
	}
	return nil, fmt.Errorf("failed to upload file to google storage after %d attempts: %s: %w", maxUploadTimes, filePath, lastErr)
}

// GetFirstCandidateTextWithThoughts splits the reply into thoughts and text.
// A safety-blocked candidate is a content violation.
func GetFirstCandidateTextWithThoughts(result *genai.GenerateContentResponse) (*ResponseWithThoughts, error) {
	if result == nil {
		return nil, fmt.Errorf("empty response")
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrContentViolation, result.PromptFeedback.BlockReasonMessage)
	}
	var thinkingContent string
	for _, c := range result.Candidates {
		for _, rating := range c.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("%w: the photo contains %s", ErrContentViolation, rating.Category)
			}
		}
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part.Thought && part.Text != "" {
				thinkingContent = part.Text
			}
		}
	}
	return &ResponseWithThoughts{
		Thoughts: thinkingContent,
		Text:     result.Text(),
	}, nil
}

func newLLMResponse(result *genai.GenerateContentResponse, reply *ResponseWithThoughts) *LLMResponse {
	out := &LLMResponse{Response: reply.Text, Thoughts: reply.Thoughts}
	if result.UsageMetadata != nil {
		out.InputTokenCount = result.UsageMetadata.PromptTokenCount
		out.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		out.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		out.TotalTokenCount = result.UsageMetadata.TotalTokenCount
	}
	return out
}

// GeminiTextGenerator writes outfit explanations with a Gemini model.
type GeminiTextGenerator struct {
	Client *genai.Client
	Model  LLMModelName
}

func (g *GeminiTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.Client.Models.GenerateContent(ctx, g.Model.String(), []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
	}}, &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: 256,
		Temperature:     floatPointer(0.7),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a friendly personal stylist. Explain in at most two short sentences why the outfit suits the occasion. Mention garments by their description, never by id. No markdown, no emoji."},
			},
		},
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: Int32Pointer(0),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate explanation: %w", err)
	}
	reply, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		return "", err
	}
	usage := newLLMResponse(result, reply)
	log.Debug().
		Str("model", g.Model.String()).
		Int32("input_tokens", usage.InputTokenCount).
		Int32("output_tokens", usage.OutputTokenCount).
		Msg("explanation generated")
	return strings.TrimSpace(reply.Text), nil
}

// SeasonFitness is the per-season score block of an analysis.
type SeasonFitness struct {
	Summer       float64 `json:"summer"`
	Winter       float64 `json:"winter"`
	Monsoon      float64 `json:"monsoon"`
	Transitional float64 `json:"transitional"`
}

// ClothingAnalysis is the structured description the vision model returns
// for one garment photo.
type ClothingAnalysis struct {
	Detected         bool          `json:"detected"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Slot             string        `json:"slot"`
	Subtype          string        `json:"subtype"`
	Fabric           string        `json:"fabric"`
	Pattern          string        `json:"pattern"`
	WeightClass      int           `json:"weight_class"`
	Fit              string        `json:"fit"`
	Colors           []string      `json:"colors"`
	FormalityMin     float64       `json:"formality_min"`
	FormalityMax     float64       `json:"formality_max"`
	Seasons          SeasonFitness `json:"season_scores"`
	Versatility      float64       `json:"versatility"`
	BodyTypes        []string      `json:"body_types"`
	StyleTags        []string      `json:"style_tags"`
	NoLayerUnder     bool          `json:"no_layer_under"`
	RequiresLayering bool          `json:"requires_layering"`
}

var ErrNoGarmentDetected = errors.New("no garment detected on the photo")

var hexColorRule = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseClothingAnalysis decodes and sanity checks a model reply.
func ParseClothingAnalysis(text string) (*ClothingAnalysis, error) {
	var analysis ClothingAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode clothing analysis: %w", err)
	}
	if !analysis.Detected {
		return nil, ErrNoGarmentDetected
	}
	if !stylist.Slot(analysis.Slot).Valid() {
		return nil, fmt.Errorf("clothing analysis returned unknown slot %q", analysis.Slot)
	}
	colors := analysis.Colors[:0]
	for _, c := range analysis.Colors {
		if hexColorRule.MatchString(c) {
			colors = append(colors, c)
		}
	}
	analysis.Colors = colors
	if analysis.FormalityMin > analysis.FormalityMax {
		analysis.FormalityMin, analysis.FormalityMax = analysis.FormalityMax, analysis.FormalityMin
	}
	return &analysis, nil
}

type ClothingAnalyzer interface {
	AnalyzeClothing(ctx context.Context, imagePath string, modelName LLMModelName) (*ClothingAnalysis, *LLMResponse, error)
}

// GoogleClothingAnalyzer asks a Gemini vision model to describe a garment.
type GoogleClothingAnalyzer struct {
	Client *genai.Client
}

var dashAlphaRule = regexp.MustCompile(`[^a-z0-9-]`)

func clothingAnalysisSchema() *genai.Schema {
	unit := func() *genai.Schema {
		return &genai.Schema{Type: "number", Minimum: float64Pointer(0), Maximum: float64Pointer(1)}
	}
	formality := func() *genai.Schema {
		return &genai.Schema{Type: "number", Minimum: float64Pointer(0), Maximum: float64Pointer(stylist.FormalityScaleMax)}
	}
	tags := func() *genai.Schema {
		return &genai.Schema{Type: "array", Items: &genai.Schema{Type: "string"}}
	}
	return &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"detected":    {Type: "boolean"},
			"name":        {Type: "string"},
			"description": {Type: "string"},
			"slot":        {Type: "string", Enum: []string{"top", "bottom", "layer", "shoes", "accessory", "one_piece"}},
			"subtype":     {Type: "string"},
			"fabric":      {Type: "string"},
			"pattern":     {Type: "string", Enum: []string{"solid", "stripe", "check", "graphic", "floral", "other"}},
			"weight_class": {
				Type: "integer", Minimum: float64Pointer(1), Maximum: float64Pointer(3),
			},
			"fit":           {Type: "string", Enum: []string{"fitted", "regular", "loose"}},
			"colors":        {Type: "array", Items: &genai.Schema{Type: "string", Description: "hex colour like #1f2a44"}},
			"formality_min": formality(),
			"formality_max": formality(),
			"season_scores": {
				Type: "object",
				Properties: map[string]*genai.Schema{
					"summer":       unit(),
					"winter":       unit(),
					"monsoon":      unit(),
					"transitional": unit(),
				},
				Required: []string{"summer", "winter", "monsoon", "transitional"},
			},
			"versatility":       unit(),
			"body_types":        tags(),
			"style_tags":        tags(),
			"no_layer_under":    {Type: "boolean"},
			"requires_layering": {Type: "boolean"},
		},
		Required: []string{
			"detected", "name", "description", "slot", "subtype", "fabric", "pattern", "weight_class", "fit",
			"colors", "formality_min", "formality_max", "season_scores", "versatility", "body_types",
			"style_tags", "no_layer_under", "requires_layering",
		},
	}
}

func float64Pointer(f float64) *float64 {
	return &f
}

const clothingAnalysisInstruction = `You are a fashion cataloguer. Describe the single garment on the photo for a wardrobe app and return JSON with the specified fields only.
If the photo shows no garment set "detected" to false and leave other fields empty.
- slot: top, bottom, layer (jackets, blazers, cardigans), shoes, accessory or one_piece (dresses, jumpsuits).
- formality_min and formality_max: the range of occasions the garment suits on a 0 to 10 scale, where 0 is loungewear, 5 is smart casual and 10 is black tie.
- season_scores: how well the garment works in each season from 0 to 1.
- weight_class: 1 light, 2 medium, 3 heavy.
- colors: up to three dominant colours as hex, most visible first.
- body_types: any of pear, apple, hourglass, rectangle, inverted_triangle the garment flatters.
- no_layer_under: true when nothing can be worn over it (for example a bulky knit or a strapless top).
- requires_layering: true when it is not worn alone (for example a sheer blouse).`

func (a GoogleClothingAnalyzer) AnalyzeClothing(ctx context.Context, imagePath string, modelName LLMModelName) (*ClothingAnalysis, *LLMResponse, error) {
	fileName := filepath.Base(imagePath)
	sanitizedFileName := dashAlphaRule.ReplaceAllString(strings.ToLower(strings.ReplaceAll(fileName, ".", "-")), "")
	genFile, err := tryUploadGoogleStorage(ctx, a.Client, imagePath, &sanitizedFileName)
	if err != nil {
		return nil, nil, err
	}

	parts := []*genai.Part{
		{FileData: &genai.FileData{FileURI: genFile.URI, MIMEType: genFile.MIMEType}},
		{Text: "Describe this garment."},
	}
	result, err := a.Client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		CandidateCount:   1,
		MaxOutputTokens:  4096,
		Temperature:      floatPointer(0.2),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: clothingAnalysisInstruction}},
		},
		ResponseSchema: clothingAnalysisSchema(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("analyze clothing: %w", err)
	}
	reply, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		return nil, nil, err
	}
	usage := newLLMResponse(result, reply)
	log.Info().
		Str("model", modelName.String()).
		Int32("input_tokens", usage.InputTokenCount).
		Int32("output_tokens", usage.OutputTokenCount).
		Int32("total_tokens", usage.TotalTokenCount).
		Msg("clothing analyzed")

	analysis, err := ParseClothingAnalysis(reply.Text)
	if err != nil {
		return nil, usage, err
	}
	return analysis, usage, nil
}
