package app

import (
	"context"

	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/router"
)

func instrumentedEmbedder(route router.Route, metrics *observability.Metrics) dedupe.Embedder {
	return dedupe.EmbedderFunc(func(ctx context.Context, inputs []string) ([][]float32, error) {
		vecs, err := route.Embed(ctx, inputs)
		metrics.ObserveEngineCall("embed", route.PublicModel, err)
		return vecs, err
	})
}
