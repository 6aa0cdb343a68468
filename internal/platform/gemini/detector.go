package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Detector recognizes food objects in photos via the Gemini API.
type Detector struct {
	model *genai.GenerativeModel
}

// NewDetector creates a new Gemini-backed detector.
func NewDetector(ctx context.Context, apiKey string) (*Detector, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Detector{model: client.GenerativeModel("gemini-1.5-flash")}, nil
}

// IsFoodImage checks if the given image contains food and returns a description.
func (d *Detector) IsFoodImage(ctx context.Context, imageData []byte) (bool, string, error) {
	prompt := []genai.Part{
		genai.ImageData("png", imageData),
		genai.Text("Analyze the provided image. If it contains food or raw ingredients, respond with 'YES' followed by a 5-word description. If not, respond with 'NO' followed by a 5-word description of the image content."),
	}

	resp, err := d.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return false, "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return false, "", fmt.Errorf("empty response from Gemini for food check")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return false, "", fmt.Errorf("unexpected response format from Gemini for food check")
	}

	response := strings.ToLower(strings.TrimSpace(string(text)))
	if strings.HasPrefix(response, "no") {
		return false, string(text), nil
	}
	return true, string(text), nil
}

// DetectIngredients returns the names of food objects visible in the image.
// The names are raw detector labels; callers normalize them against the
// ingredient vocabulary before matching.
func (d *Detector) DetectIngredients(ctx context.Context, imageData []byte) ([]string, error) {
	promptText := "List every distinct food item or raw ingredient visible in this image. Return a single, clean JSON array of lowercase strings, one entry per item (e.g. [\"chicken\", \"tomato\"]). If the image contains no food, return an empty array []. The JSON response should be clean and not contain any markdown formatting (e.g., ```json)."

	prompt := []genai.Part{
		genai.ImageData("png", imageData),
		genai.Text(promptText),
	}

	resp, err := d.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	jsonString, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	// Extract the JSON array from the response, which might be wrapped in markdown.
	startIndex := strings.Index(string(jsonString), "[")
	endIndex := strings.LastIndex(string(jsonString), "]")

	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, fmt.Errorf("could not find JSON array in response: %s", jsonString)
	}

	cleanJSON := string(jsonString)[startIndex : endIndex+1]

	var labels []string
	if err := json.Unmarshal([]byte(cleanJSON), &labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detection JSON: %w. Raw response: %s", err, cleanJSON)
	}

	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
