package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

type document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Elastic struct {
	Client    *elasticsearch.Client
	IndexName string
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error %s: %s", res.Status(), body)
	}
	return client, nil
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{Client: client, IndexName: index}
}

func (e *Elastic) Index(ctx context.Context, p *models.Product) error {
	var buf bytes.Buffer
	doc := document{ID: p.ID, Name: p.Name, Price: p.Price, Description: p.Description, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := e.Client.Index(e.IndexName, &buf,
		e.Client.Index.WithContext(ctx),
		e.Client.Index.WithDocumentID(p.ID),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Delete(ctx context.Context, id string) error {
	res, err := e.Client.Delete(e.IndexName, id, e.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete product: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.IndexName),
		e.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		d := hit.Source
		prods[i] = models.Product{ID: d.ID, Name: d.Name, Price: d.Price, Description: d.Description, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	}
	return r.Hits.Total.Value, prods, nil
}
