package gemini

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/phrazzld/chemlab/internal/config"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
	"github.com/phrazzld/chemlab/internal/redact"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// contentGenerator is the subset of the genai client used by the generator.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Option configures optional GeminiGenerator collaborators.
type Option func(*GeminiGenerator)

// WithMetrics records every oracle call and breaker transition in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *GeminiGenerator) {
		g.metrics = c
	}
}

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// templates holds every parsed prompt template
	templates *template.Template

	// client is the Gemini API surface for making requests
	client contentGenerator

	// model is the name of the Gemini model to use
	model string

	// breaker stops calls to the API after sustained failures
	breaker *gobreaker.CircuitBreaker

	// baseDelay is the first retry delay before jitter
	baseDelay time.Duration

	// metrics is optional
	metrics *metrics.Collector

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new instance of GeminiGenerator with the provided dependencies.
//
// Parameters:
//   - ctx: Context for client construction
//   - logger: A structured logger for operation logging
//   - llm: API key, model name and retry settings
//   - oracle: circuit breaker settings
//
// Returns:
//   - A properly initialized GeminiGenerator or an error if initialization fails
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	llm config.LLMConfig,
	oracle config.OracleConfig,
	opts ...Option,
) (*GeminiGenerator, error) {
	if err := validateConfig(llm, oracle); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  llm.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, redact.Error(err))
	}

	return newGenerator(logger, llm, oracle, client.Models, opts...)
}

func newGenerator(
	logger *slog.Logger,
	llm config.LLMConfig,
	oracle config.OracleConfig,
	client contentGenerator,
	opts ...Option,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", generation.ErrInvalidConfig)
	}

	templates, err := template.ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", generation.ErrInvalidConfig, err)
	}

	g := &GeminiGenerator{
		logger:    logger.With("component", "gemini_generator"),
		config:    llm,
		templates: templates,
		client:    client,
		model:     llm.ModelName,
		baseDelay: time.Duration(llm.RetryDelaySeconds) * time.Second,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     time.Duration(oracle.BreakerTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < oracle.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= oracle.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			if g.metrics != nil {
				g.metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			}
		},
		// A well-formed refusal or a bad payload means the API is up.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, generation.ErrContentBlocked) ||
				errors.Is(err, generation.ErrInvalidResponse)
		},
	})

	return g, nil
}

// GenerateStructure implements generation.Generator.
func (g *GeminiGenerator) GenerateStructure(ctx context.Context, name string) (domain.Structure, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Structure{}, generation.ErrEmptyInput
	}

	prompt, err := g.render(tmplStructure, promptData{Name: name})
	if err != nil {
		return domain.Structure{}, err
	}
	return g.structureCall(ctx, opStructure, prompt)
}

// AnalyzeStructure implements generation.Generator.
func (g *GeminiGenerator) AnalyzeStructure(ctx context.Context, structure domain.Structure) (domain.Structure, error) {
	raw, err := json.Marshal(structure)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("failed to encode structure: %w", err)
	}

	prompt, err := g.render(tmplAnalyze, promptData{StructureJSON: string(raw)})
	if err != nil {
		return domain.Structure{}, err
	}
	return g.structureCall(ctx, opAnalyze, prompt)
}

// ApplyReaction implements generation.Generator.
func (g *GeminiGenerator) ApplyReaction(
	ctx context.Context,
	structure domain.Structure,
	reagent string,
	conditions domain.ConditionSet,
) (domain.Structure, error) {
	reagent = strings.TrimSpace(reagent)
	if reagent == "" {
		return domain.Structure{}, generation.ErrEmptyInput
	}

	raw, err := json.Marshal(structure)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("failed to encode structure: %w", err)
	}

	prompt, err := g.render(tmplReaction, promptData{
		Reagent:       reagent,
		StructureJSON: string(raw),
		Conditions:    conditions,
	})
	if err != nil {
		return domain.Structure{}, err
	}
	return g.structureCall(ctx, opReaction, prompt)
}

// GenerateQuiz implements generation.Generator.
func (g *GeminiGenerator) GenerateQuiz(ctx context.Context, topic string) (domain.Quiz, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Quiz{}, generation.ErrEmptyInput
	}

	prompt, err := g.render(tmplQuiz, promptData{Topic: topic})
	if err != nil {
		return domain.Quiz{}, err
	}

	var quiz domain.Quiz
	if err := g.jsonCall(ctx, opQuiz, generation.PayloadQuiz, prompt, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Topic == "" {
		quiz.Topic = topic
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}
	return quiz, nil
}

// GenerateReactionSteps implements generation.Generator.
func (g *GeminiGenerator) GenerateReactionSteps(ctx context.Context, description string) (domain.ReactionSteps, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.ReactionSteps{}, generation.ErrEmptyInput
	}

	prompt, err := g.render(tmplReactionSteps, promptData{Description: description})
	if err != nil {
		return domain.ReactionSteps{}, err
	}

	var steps domain.ReactionSteps
	if err := g.jsonCall(ctx, opReactionSteps, generation.PayloadReactionSteps, prompt, &steps); err != nil {
		return domain.ReactionSteps{}, err
	}
	return steps, nil
}

// GenerateStudyGuide implements generation.Generator.
func (g *GeminiGenerator) GenerateStudyGuide(ctx context.Context, topic string) (domain.StudyGuide, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.StudyGuide{}, generation.ErrEmptyInput
	}

	prompt, err := g.render(tmplStudyGuide, promptData{Topic: topic})
	if err != nil {
		return domain.StudyGuide{}, err
	}

	var guide domain.StudyGuide
	if err := g.jsonCall(ctx, opStudyGuide, generation.PayloadStudyGuide, prompt, &guide); err != nil {
		return domain.StudyGuide{}, err
	}
	return guide, nil
}

// Chat implements generation.Generator. The history is sent as prior turns
// and message as the final user turn.
func (g *GeminiGenerator) Chat(ctx context.Context, history []domain.ChatTurn, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", generation.ErrEmptyInput
	}

	system, err := g.render(tmplChat, promptData{})
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, textContent(string(turn.Role), turn.Text))
	}
	contents = append(contents, textContent(string(domain.ChatRoleUser), message))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: textContent("", system),
	}

	reply, err := g.callWithRetry(ctx, opChat, contents, cfg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// render executes the named prompt template.
func (g *GeminiGenerator) render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := g.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}

	prompt := strings.TrimSpace(buf.String())
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return prompt, nil
}

// structureCall requests a structure payload and accepts it only if it is a
// well-formed graph.
func (g *GeminiGenerator) structureCall(ctx context.Context, op, prompt string) (domain.Structure, error) {
	var structure domain.Structure
	if err := g.jsonCall(ctx, op, generation.PayloadStructure, prompt, &structure); err != nil {
		return domain.Structure{}, err
	}

	accepted, err := domain.NewStructure(structure)
	if err != nil {
		g.logger.WarnContext(ctx, "oracle returned a malformed structure",
			"operation", op,
			"error", err)
		return domain.Structure{}, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}
	return accepted, nil
}

// jsonCall sends a single-turn prompt, checks the payload shape and decodes it into out.
func (g *GeminiGenerator) jsonCall(ctx context.Context, op string, kind generation.Payload, prompt string, out any) error {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	contents := []*genai.Content{textContent(string(domain.ChatRoleUser), prompt)}

	text, err := g.callWithRetry(ctx, op, contents, cfg)
	if err != nil {
		return err
	}

	raw := []byte(stripCodeFence(text))
	if err := generation.ValidateShape(kind, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

// callWithRetry makes a call to the Gemini API with exponential backoff retry logic.
//
// It attempts the call up to config.MaxRetries+1 times, using exponential backoff
// with jitter between retries for transient errors. Permanent errors (content
// blocked by safety filters, unusable responses, an open breaker) are returned
// immediately without retrying.
func (g *GeminiGenerator) callWithRetry(
	ctx context.Context,
	op string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (text string, err error) {
	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.RecordOracleCall(op, outcomeLabel(err), time.Since(start))
		}
	}()

	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "Invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	baseDelay := g.baseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "Making Gemini API call",
			"operation", op,
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		text, err = g.attempt(ctx, contents, cfg)
		if err == nil {
			g.logger.InfoContext(ctx, "Gemini API call successful",
				"operation", op,
				"attempt", attemptNum)
			return text, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"operation", op,
			"attempt", attemptNum,
			"error", redact.Error(err))

		if !isTransient(err) {
			return "", err
		}
		if attempt >= maxRetries {
			g.logger.WarnContext(ctx, "Maximum retry attempts reached",
				"operation", op,
				"max_retries", maxRetries)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrOracleUnavailable, maxRetries, redact.Error(err))
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)) * g.jitter())

		g.logger.InfoContext(ctx, "Retrying after delay",
			"operation", op,
			"attempt", attemptNum,
			"delay", delay.String())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"operation", op,
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return "", fmt.Errorf("%w: %w", generation.ErrOracleUnavailable, ctx.Err())
		}
	}
}

// attempt performs one breaker-guarded API call and extracts the response text.
func (g *GeminiGenerator) attempt(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.config.RequestTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(g.config.RequestTimeoutSeconds)*time.Second)
			defer cancel()
		}

		resp, err := g.client.GenerateContent(callCtx, g.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errTransient, redact.Error(err))
		}
		return responseText(resp)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", fmt.Errorf("%w: circuit breaker rejected call: %v", generation.ErrOracleUnavailable, err)
	case err != nil:
		return "", err
	}
	return result.(string), nil
}

// errTransient marks errors worth another attempt. It never escapes the package.
var errTransient = errors.New("transient gemini error")

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

func (g *GeminiGenerator) jitter() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return 0.5 + g.rng.Float64()*0.5
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: text}},
	}
}

// stripCodeFence removes a surrounding ```json fence some models add even in
// JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, generation.ErrContentBlocked):
		return "blocked"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "invalid"
	case errors.Is(err, generation.ErrOracleUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
