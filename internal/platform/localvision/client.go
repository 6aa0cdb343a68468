package localvision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Detector talks to a local OpenAI-compatible vision endpoint, so the service
// can run without a Gemini API key.
type Detector struct {
	httpClient *http.Client
	apiURL     string
	model      string
}

// NewDetector creates a detector against the given chat-completions URL.
// An empty url falls back to the default LM Studio address.
func NewDetector(url, model string) *Detector {
	if url == "" {
		url = "http://localhost:1234/v1/chat/completions"
	}
	if model == "" {
		model = "gemma-3-12b-it:2"
	}
	return &Detector{
		httpClient: &http.Client{},
		apiURL:     url,
		model:      model,
	}
}

// Request represents the request body for the local model.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local model.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (d *Detector) generateContent(ctx context.Context, text string, imageData string) (string, error) {
	reqBody := Request{
		Model: d.model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					{
						Type: "text",
						Text: text,
					},
					{
						Type: "image_url",
						ImageURL: &ImageURL{
							URL: "data:image/jpeg;base64," + imageData,
						},
					},
				},
			},
		},
		Temperature: 0,
		MaxTokens:   256,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) > 0 {
		return llmResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("no content found in response")
}

// IsFoodImage checks if the given image contains food and returns a description.
func (d *Detector) IsFoodImage(ctx context.Context, imageData []byte) (bool, string, error) {
	prompt := "Analyze the provided image. If it contains food or raw ingredients, respond with 'YES' followed by a 5-word description. If not, respond with 'NO' followed by a 5-word description of the image content."
	encodedImage := base64.StdEncoding.EncodeToString(imageData)
	responseText, err := d.generateContent(ctx, prompt, encodedImage)
	if err != nil {
		return false, "", fmt.Errorf("failed to generate content: %w", err)
	}

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(responseText)), "no") {
		return false, responseText, nil
	}
	return true, responseText, nil
}

// DetectIngredients returns the names of food objects visible in the image.
func (d *Detector) DetectIngredients(ctx context.Context, imageData []byte) ([]string, error) {
	prompt := "List every distinct food item or raw ingredient visible in this image. Return a single, clean JSON array of lowercase strings, one entry per item (e.g. [\"chicken\", \"tomato\"]). If the image contains no food, return an empty array []. The JSON response should be clean and not contain any markdown formatting."

	encodedImage := base64.StdEncoding.EncodeToString(imageData)
	responseText, err := d.generateContent(ctx, prompt, encodedImage)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	startIndex := strings.Index(responseText, "[")
	endIndex := strings.LastIndex(responseText, "]")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, fmt.Errorf("could not find JSON array in response: %s", responseText)
	}

	var labels []string
	if err := json.Unmarshal([]byte(responseText[startIndex:endIndex+1]), &labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detection from response: %w", err)
	}

	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
