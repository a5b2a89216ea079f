package gemini

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/manash/pixedit/internal/prompt"
	"github.com/manash/pixedit/internal/provider"
	"github.com/manash/pixedit/pkg/models"
)

// DefaultModel is the fixed image model identifier; it is configuration, not
// a per-request choice.
const DefaultModel = "gemini-2.5-flash-image"

var supportedModels = []string{
	DefaultModel,
	"gemini-2.0-flash-preview-image-generation",
}

type Provider struct {
	client  *genai.Client
	model   string
	verbose bool
}

func New(ctx context.Context, cfg *provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if !slices.Contains(supportedModels, model) {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, model)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Provider{
		client:  client,
		model:   model,
		verbose: cfg.Verbose,
	}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) SupportsModel(model string) bool {
	return slices.Contains(supportedModels, model)
}

func (p *Provider) ListModels() []string {
	return slices.Clone(supportedModels)
}

func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) SetModel(model string) error {
	if !slices.Contains(supportedModels, model) {
		return fmt.Errorf("%w: %s", provider.ErrModelNotSupported, model)
	}
	p.model = model
	return nil
}

// Edit submits exactly one request carrying the image part(s) and the
// composed instruction, then classifies the single response.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.EditResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	instruction, err := prompt.Build(req)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{genai.NewPartFromBytes(req.Image, req.ImageMime)}
	if len(req.SecondImage) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.SecondImage, req.SecondImageMime))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	p.logRequest(req, instruction)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEditFailed, err)
	}

	result, err := Interpret(resp)
	p.logOutcome(result, err)
	return result, err
}

// Interpret classifies a model response in fixed priority order: an explicit
// block signal wins over everything, then an embedded image means success,
// then an abnormal finish reason, and only then a generic no-image failure
// carrying whatever text came back.
func Interpret(resp *genai.GenerateContentResponse) (*models.EditResult, error) {
	if fb := resp.PromptFeedback; fb != nil &&
		fb.BlockReason != "" &&
		fb.BlockReason != genai.BlockedReason("BLOCKED_REASON_UNSPECIFIED") {
		return nil, &models.BlockedError{
			Reason:  string(fb.BlockReason),
			Message: fb.BlockReasonMessage,
		}
	}

	var (
		image    *genai.Blob
		feedback strings.Builder
		finish   genai.FinishReason
	)
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		finish = cand.FinishReason
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 && image == nil {
					image = part.InlineData
				}
				if part.Text != "" {
					if feedback.Len() > 0 {
						feedback.WriteString(" ")
					}
					feedback.WriteString(part.Text)
				}
			}
		}
	}

	if image != nil {
		mime := image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &models.EditResult{
			Data:     image.Data,
			MimeType: mime,
			Feedback: strings.TrimSpace(feedback.String()),
		}, nil
	}

	if finish != "" &&
		finish != genai.FinishReasonStop &&
		finish != genai.FinishReason("FINISH_REASON_UNSPECIFIED") {
		return nil, &models.GenerationStoppedError{Reason: string(finish)}
	}

	return nil, &models.NoImageError{Feedback: strings.TrimSpace(feedback.String())}
}

func (p *Provider) logRequest(req *models.EditRequest, instruction string) {
	if !p.verbose {
		return
	}
	fmt.Fprintln(os.Stderr, "--- REQUEST ---")
	fmt.Fprintf(os.Stderr, "model: %s\n", p.model)
	fmt.Fprintf(os.Stderr, "operation: %s\n", req.Kind)
	fmt.Fprintf(os.Stderr, "image: [%d bytes, %s]\n", len(req.Image), req.ImageMime)
	if len(req.SecondImage) > 0 {
		fmt.Fprintf(os.Stderr, "second image: [%d bytes, %s]\n", len(req.SecondImage), req.SecondImageMime)
	}
	fmt.Fprintf(os.Stderr, "instruction:\n%s\n", instruction)
	fmt.Fprintln(os.Stderr, "---------------")
}

func (p *Provider) logOutcome(result *models.EditResult, err error) {
	if !p.verbose {
		return
	}
	fmt.Fprintln(os.Stderr, "--- RESPONSE ---")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failure: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "image: [%d bytes, %s]\n", len(result.Data), result.MimeType)
		if result.Feedback != "" {
			fmt.Fprintf(os.Stderr, "feedback: %s\n", result.Feedback)
		}
	}
	fmt.Fprintln(os.Stderr, "----------------")
}
