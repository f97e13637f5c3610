package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cartwheel-ai/cartwheel/completion"
	"github.com/cartwheel-ai/cartwheel/core/protocol"
	"github.com/cartwheel-ai/cartwheel/session"
)

// DefaultMaxResults bounds how many products one search may surface.
const DefaultMaxResults = 5

// NotFoundMessage is returned when no catalog product matches the demand.
const NotFoundMessage = "Sorry, we couldn't find any product in the catalog that meets your demand."

const searchPrompt = `You are a product recommendation searcher for a delivery app for a convenience store. Your job is to find product recommendations available for the user based on a description, suggestion or context of what they want. Strictly follow these rules:

1 - You can only recommend the products listed in the catalog below.

2 - You should recommend products based on the given description or context. If the user is not specific, try to infer the their needs and recommend the most suitable products.

3 - Analyze the products in the catalog and return only the names of those that potentially fit the user's demand. Return more than one product if necessary. Do not include the product type or price in the response, just the name.

4 - Your response must be in JSON format, as follows:

{
    "recommended_products": ["Product Name 1", "Product Name 2", ...]
}

5 - If a purchase history is available, you can use it to refine the product recommendation. E.g., if the user has Brahma in their history and now asks for barbecue drinks, then recommend Brahma. Or, if the user asks to repeat an old order, base your response on the purchase history.

Available product catalog:

%s

Customer purchase history:

%s

Description of the desired product:

%s`

// Config holds catalog adapter initialization parameters.
type Config struct {
	ProductsPath  string `json:"products_path,omitempty"`
	HistoriesPath string `json:"histories_path,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// DefaultConfig returns the default catalog configuration.
func DefaultConfig() Config {
	return Config{MaxResults: DefaultMaxResults}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.ProductsPath != "" {
		c.ProductsPath = source.ProductsPath
	}
	if source.HistoriesPath != "" {
		c.HistoriesPath = source.HistoriesPath
	}
	if source.MaxResults > 0 {
		c.MaxResults = source.MaxResults
	}
}

// Adapter matches a free-text demand against the location's catalog shard.
// Every product it surfaces is appended to the session's recommended set,
// which gates later cart additions.
type Adapter struct {
	client     completion.Client
	store      session.Store
	corpus     *Corpus
	maxResults int
}

// NewAdapter creates an Adapter. maxResults of 0 or less selects
// DefaultMaxResults.
func NewAdapter(client completion.Client, store session.Store, corpus *Corpus, maxResults int) *Adapter {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Adapter{client: client, store: store, corpus: corpus, maxResults: maxResults}
}

// Recommend asks the completion service to select catalog products for the
// query, records them in the session's recommended set, and returns the
// formatted recommendation text.
func (a *Adapter) Recommend(ctx context.Context, sessionID, query, zipcode string) (string, error) {
	prompt := fmt.Sprintf(searchPrompt, a.corpus.CatalogFor(zipcode), a.corpus.HistoryFor(zipcode), query)

	reply, err := a.client.Complete(ctx,
		[]protocol.Message{protocol.NewMessage(protocol.RoleSystem, prompt)},
		nil,
		&completion.Options{JSONResponse: true},
	)
	if err != nil {
		return "", fmt.Errorf("recommendation ranking: %w", err)
	}

	var ranked struct {
		RecommendedProducts []string `json:"recommended_products"`
	}
	if err := json.Unmarshal([]byte(reply.Content), &ranked); err != nil {
		return "", fmt.Errorf("decode recommendation ranking: %w", err)
	}

	matches := a.matchProducts(ranked.RecommendedProducts)
	if len(matches) == 0 {
		return NotFoundMessage, nil
	}

	err = a.store.Update(ctx, sessionID, func(s *session.State) error {
		s.AddRecommended(matches...)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record recommendations: %w", err)
	}

	var b strings.Builder
	for _, p := range matches {
		fmt.Fprintf(&b, "%s - R$%.2f per unit\n", p.Name, p.UnitPrice)
	}
	return b.String(), nil
}

// matchProducts resolves ranked names against the corpus, dropping
// hallucinated names and capping the result count.
func (a *Adapter) matchProducts(names []string) []session.Product {
	var matches []session.Product
	for _, name := range names {
		if p, ok := a.corpus.Find(name); ok {
			matches = append(matches, p)
			if len(matches) == a.maxResults {
				break
			}
		}
	}
	return matches
}
