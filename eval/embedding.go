// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"fmt"
	"log/slog"

	aiplatform "cloud.google.com/go/aiplatform/apiv1beta1"
	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// DefaultEmbeddingModel is the Vertex publisher model used for semantic
// similarity scoring.
const DefaultEmbeddingModel = "text-embedding-004"

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Close() error
}

// VertexEmbedder embeds text through a Vertex AI publisher embedding model.
type VertexEmbedder struct {
	client   *aiplatform.PredictionClient
	endpoint string
	logger   *slog.Logger
}

var _ Embedder = (*VertexEmbedder)(nil)

// NewVertexEmbedder creates an embedder for one project and region. model
// empty uses DefaultEmbeddingModel.
func NewVertexEmbedder(ctx context.Context, projectID, location, model string, opts ...cx.Option) (*VertexEmbedder, error) {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, cx.DefaultLocation)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := aiplatform.NewPredictionClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prediction client: %w", err)
	}
	return &VertexEmbedder{
		client: client,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			projectID, location, model),
		logger: settings.Logger(),
	}, nil
}

// Close releases the underlying client connection.
func (e *VertexEmbedder) Close() error {
	return e.client.Close()
}

// Embed returns one embedding vector per input text.
func (e *VertexEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	instances := make([]*structpb.Value, len(texts))
	for i, text := range texts {
		instance, err := structpb.NewStruct(map[string]any{"content": text})
		if err != nil {
			return nil, fmt.Errorf("build embedding instance: %w", err)
		}
		instances[i] = structpb.NewStructValue(instance)
	}

	resp, err := e.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  e.endpoint,
		Instances: instances,
	})
	if err != nil {
		return nil, fmt.Errorf("predict embeddings: %w", err)
	}
	if len(resp.GetPredictions()) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.GetPredictions()), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for i, prediction := range resp.GetPredictions() {
		values := prediction.GetStructValue().
			GetFields()["embeddings"].GetStructValue().
			GetFields()["values"].GetListValue().GetValues()
		if len(values) == 0 {
			return nil, fmt.Errorf("prediction %d has no embedding values", i)
		}
		vector := make([]float64, len(values))
		for j, v := range values {
			vector[j] = v.GetNumberValue()
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// SemanticSimilarity scores cosine similarity between the embeddings of the
// expected and predicted texts, shifted onto [0, 1].
type SemanticSimilarity struct {
	embedder Embedder
}

// NewSemanticSimilarity builds the metric on top of an embedder.
func NewSemanticSimilarity(embedder Embedder) *SemanticSimilarity {
	return &SemanticSimilarity{embedder: embedder}
}

func (*SemanticSimilarity) Name() string { return "semantic_similarity" }

func (m *SemanticSimilarity) Score(ctx context.Context, expected, predicted string) (float64, error) {
	vectors, err := m.embedder.Embed(ctx, []string{expected, predicted})
	if err != nil {
		return 0, err
	}
	similarity, err := cosineSimilarity(vectors[0], vectors[1])
	if err != nil {
		return 0, err
	}
	return (similarity + 1) / 2, nil
}
