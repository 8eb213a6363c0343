// Package generator produces AI-generated marketing assets (demo
// landing pages and proposal flyers) for places and persists them.
package generator

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/internal/resilience"
	"github.com/rueda-la-rola/leadgen/internal/store"
	"github.com/rueda-la-rola/leadgen/pkg/textgen"
)

// Config tunes the generation call.
type Config struct {
	// Model is the generative model id.
	Model string
	// MaxTokens caps the generated output size.
	MaxTokens int64
	// MaxAttempts is the total try count on rate-limit responses.
	MaxAttempts int
	// RetryBackoff is the fixed wait between rate-limited attempts.
	RetryBackoff time.Duration
}

// Request describes one asset to generate. PlaceName and Type are
// required; PlaceID is derived from the name when the caller has no
// directory id (CLI usage).
type Request struct {
	PlaceID      string
	PlaceName    string
	PlaceAddress string
	Type         model.AssetType
	Website      *string
}

// ErrInvalidRequest marks validation failures the HTTP layer maps to 400.
var ErrInvalidRequest = eris.New("generator: invalid request")

// Generator fills a prompt template, calls the text model once (with a
// bounded rate-limit retry), cleans the response and persists it.
type Generator struct {
	client textgen.Client
	store  store.Store
	cfg    Config
}

// New creates a Generator. The client and store are constructed once at
// startup and shared.
func New(client textgen.Client, st store.Store, cfg Config) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	return &Generator{client: client, store: st, cfg: cfg}
}

// Generate produces and persists one asset, returning the stored
// record. The call is synchronous and may take several seconds.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Asset, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	prompt := buildPrompt(req)

	retryCfg := resilience.FixedRetry(g.cfg.MaxAttempts, g.cfg.RetryBackoff, textgen.IsRateLimited)
	retryCfg.OnRetry = resilience.RetryLogger("textgen", "generate_"+string(req.Type))

	start := time.Now()
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*textgen.MessageResponse, error) {
		return g.client.CreateMessage(ctx, textgen.MessageRequest{
			Model:     g.cfg.Model,
			MaxTokens: g.cfg.MaxTokens,
			Messages:  []textgen.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "generator: %s for %q", req.Type, req.PlaceName)
	}

	content := stripFences(textgen.ExtractText(resp))
	if content == "" {
		return nil, eris.Errorf("generator: empty %s output for %q", req.Type, req.PlaceName)
	}

	asset := model.Asset{
		PlaceID:   req.PlaceID,
		PlaceName: req.PlaceName,
		Type:      req.Type,
		Content:   content,
		Meta: model.AssetMeta{
			Address: req.PlaceAddress,
			Website: req.Website,
		},
	}

	// Not transactional with the model call: a store failure discards
	// the generated content.
	created, err := g.store.CreateAsset(ctx, asset)
	if err != nil {
		return nil, eris.Wrapf(err, "generator: persist %s for %q", req.Type, req.PlaceName)
	}

	zap.L().Info("asset generated",
		zap.String("asset_id", created.ID),
		zap.String("place_id", created.PlaceID),
		zap.String("type", string(created.Type)),
		zap.Int("content_bytes", len(created.Content)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return created, nil
}

func validate(req *Request) error {
	if strings.TrimSpace(req.PlaceName) == "" {
		return eris.Wrap(ErrInvalidRequest, "place name is required")
	}
	if _, err := model.ParseAssetType(string(req.Type)); err != nil {
		return eris.Wrapf(ErrInvalidRequest, "asset type %q", req.Type)
	}
	if req.PlaceID == "" {
		req.PlaceID = SurrogatePlaceID(req.PlaceName)
	}
	return nil
}

// SurrogatePlaceID derives a stable identifier from a place name for
// callers without a directory id. Keeps the asset join uniform on
// place_id even off the search path.
func SurrogatePlaceID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return "name:" + b.String()
}
