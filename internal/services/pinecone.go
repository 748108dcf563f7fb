package services

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeIndex is a VectorIndex backed by one Pinecone index and namespace
type PineconeIndex struct {
	conn *pinecone.IndexConnection
}

// NewPineconeIndex resolves the index host and opens a connection to it
func NewPineconeIndex(ctx context.Context, apiKey, indexName, namespace string) (*PineconeIndex, error) {
	if apiKey == "" || indexName == "" {
		return nil, fmt.Errorf("pinecone api key and index name are required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	idx, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", indexName, err)
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to index %q: %w", indexName, err)
	}

	return &PineconeIndex{conn: conn}, nil
}

// Upsert writes vectors with their metadata
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []TransactionVector) error {
	batch := make([]*pinecone.Vector, 0, len(vectors))
	for _, v := range vectors {
		pv, err := toPineconeVector(v)
		if err != nil {
			return err
		}
		batch = append(batch, pv)
	}

	if _, err := p.conn.UpsertVectors(ctx, batch); err != nil {
		return err
	}
	return nil
}

// Query returns the topK closest vectors owned by userID
func (p *PineconeIndex) Query(ctx context.Context, values []float32, userID string, topK int) ([]VectorMatch, error) {
	filter, err := userFilter(userID)
	if err != nil {
		return nil, err
	}

	resp, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          values,
		TopK:            uint32(topK),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		matches = append(matches, VectorMatch{
			ID:       m.Vector.Id,
			Score:    m.Score,
			Metadata: fromPineconeMetadata(m.Vector.Metadata),
		})
	}
	return matches, nil
}

// Delete removes vectors by id
func (p *PineconeIndex) Delete(ctx context.Context, ids []string) error {
	return p.conn.DeleteVectorsById(ctx, ids)
}

// Close releases the index connection
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}

func toPineconeVector(v TransactionVector) (*pinecone.Vector, error) {
	md, err := structpb.NewStruct(map[string]any{
		"userId":   v.Metadata.UserID,
		"title":    v.Metadata.Title,
		"amount":   v.Metadata.Amount,
		"category": v.Metadata.Category,
		"date":     v.Metadata.Date,
		"text":     v.Metadata.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("build metadata for vector %s: %w", v.ID, err)
	}

	return &pinecone.Vector{
		Id:       v.ID,
		Values:   v.Values,
		Metadata: md,
	}, nil
}

func fromPineconeMetadata(md *structpb.Struct) VectorMetadata {
	fields := md.GetFields()
	return VectorMetadata{
		UserID:   fields["userId"].GetStringValue(),
		Title:    fields["title"].GetStringValue(),
		Amount:   fields["amount"].GetNumberValue(),
		Category: fields["category"].GetStringValue(),
		Date:     fields["date"].GetStringValue(),
		Text:     fields["text"].GetStringValue(),
	}
}

// userFilter restricts a query to one user's vectors
func userFilter(userID string) (*structpb.Struct, error) {
	filter, err := structpb.NewStruct(map[string]any{
		"userId": map[string]any{"$eq": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("build user filter: %w", err)
	}
	return filter, nil
}
