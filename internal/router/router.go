package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/yungbote/quizforge/internal/config"
	"github.com/yungbote/quizforge/internal/engine"
	"github.com/yungbote/quizforge/internal/engine/mock"
	"github.com/yungbote/quizforge/internal/engine/oaihttp"
)

type Route struct {
	PublicModel   string
	UpstreamModel string
	Engine        engine.Engine
}

// Embed calls the route's engine with its upstream model name.
func (r Route) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return r.Engine.Embed(ctx, r.UpstreamModel, inputs)
}

type Router struct {
	routes map[string]Route
}

func New(cfg *config.Config) (*Router, error) {
	return NewWithHTTPClient(cfg, nil)
}

// NewWithHTTPClient lets tests swap the transport used by HTTP engines.
func NewWithHTTPClient(cfg *config.Config, httpClient *http.Client) (*Router, error) {
	r := &Router{routes: map[string]Route{}}
	for _, m := range cfg.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("model id required")
		}
		if _, exists := r.routes[id]; exists {
			return nil, fmt.Errorf("duplicate model id: %s", id)
		}

		var eng engine.Engine
		switch strings.ToLower(strings.TrimSpace(m.Engine.Type)) {
		case "mock":
			eng = mock.New()
		case "openai_http", "oai_http":
			e, err := oaihttp.NewWithHTTPClient(m.Engine, httpClient)
			if err != nil {
				return nil, fmt.Errorf("model %q: %w", id, err)
			}
			eng = e
		default:
			return nil, fmt.Errorf("unsupported engine type %q for model %q", m.Engine.Type, id)
		}

		upstream := strings.TrimSpace(m.UpstreamModel)
		if upstream == "" {
			upstream = id
		}

		r.routes[id] = Route{
			PublicModel:   id,
			UpstreamModel: upstream,
			Engine:        eng,
		}
	}
	return r, nil
}

func (r *Router) ListModels() []string {
	out := make([]string, 0, len(r.routes))
	for id := range r.routes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Router) RouteForModel(model string) (Route, bool) {
	route, ok := r.routes[strings.TrimSpace(model)]
	return route, ok
}
