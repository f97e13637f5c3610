package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cartwheel-ai/cartwheel/catalog"
	"github.com/cartwheel-ai/cartwheel/completion"
	"github.com/cartwheel-ai/cartwheel/core/protocol"
	"github.com/cartwheel-ai/cartwheel/session"
)

// rankerClient returns a canned ranking response and records the prompt.
type rankerClient struct {
	content    string
	err        error
	lastPrompt string
	lastOpts   *completion.Options
}

func (c *rankerClient) Complete(ctx context.Context, messages []protocol.Message, tools []protocol.Tool, opts *completion.Options) (*completion.Reply, error) {
	if len(messages) > 0 {
		c.lastPrompt = messages[0].Content
	}
	c.lastOpts = opts
	if c.err != nil {
		return nil, c.err
	}
	return &completion.Reply{Content: c.content}, nil
}

var corpusProducts = []session.Product{
	{ID: 1, Name: "Guinness Beer 350ml", UnitPrice: 8.90, UnitVolume: 0.35},
	{ID: 2, Name: "Soda 1L", UnitPrice: 7.50, UnitVolume: 1.0},
	{ID: 3, Name: "Red Wine 750ml", UnitPrice: 42.00, UnitVolume: 0.75},
	{ID: 4, Name: "Water 500ml", UnitPrice: 2.50, UnitVolume: 0.5},
}

func TestRecommend_RecordsAndFormats(t *testing.T) {
	client := &rankerClient{content: `{"recommended_products":["guinness beer 350ml","Red Wine 750ml"]}`}
	store := session.NewMemoryStore()
	adapter := catalog.NewAdapter(client, store, catalog.NewCorpus(corpusProducts, nil), 5)

	text, err := adapter.Recommend(context.Background(), "s1", "a dark beer", "12345678")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if !strings.Contains(text, "Guinness Beer 350ml - R$8.90 per unit") {
		t.Errorf("recommendation text = %q", text)
	}
	if !strings.Contains(text, "Red Wine 750ml - R$42.00 per unit") {
		t.Errorf("recommendation text = %q", text)
	}

	state, _ := store.Get(context.Background(), "s1")
	if _, ok := state.FindRecommended("Guinness Beer 350ml"); !ok {
		t.Error("recommended set missing surfaced product")
	}

	if client.lastOpts == nil || !client.lastOpts.JSONResponse {
		t.Error("ranking request did not ask for a JSON object response")
	}
	if !strings.Contains(client.lastPrompt, "a dark beer") {
		t.Error("prompt missing the query")
	}
}

func TestRecommend_DropsHallucinatedNames(t *testing.T) {
	client := &rankerClient{content: `{"recommended_products":["Unicorn Tears 1L","Soda 1L"]}`}
	store := session.NewMemoryStore()
	adapter := catalog.NewAdapter(client, store, catalog.NewCorpus(corpusProducts, nil), 5)

	text, err := adapter.Recommend(context.Background(), "s1", "something", "12345678")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if strings.Contains(text, "Unicorn") {
		t.Errorf("hallucinated product surfaced: %q", text)
	}

	state, _ := store.Get(context.Background(), "s1")
	if len(state.Recommended) != 1 {
		t.Errorf("recommended set = %+v, want only Soda 1L", state.Recommended)
	}
}

func TestRecommend_CapsResults(t *testing.T) {
	client := &rankerClient{content: `{"recommended_products":["Guinness Beer 350ml","Soda 1L","Red Wine 750ml","Water 500ml"]}`}
	store := session.NewMemoryStore()
	adapter := catalog.NewAdapter(client, store, catalog.NewCorpus(corpusProducts, nil), 2)

	text, err := adapter.Recommend(context.Background(), "s1", "everything", "12345678")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if got := strings.Count(text, "per unit"); got != 2 {
		t.Errorf("got %d recommendations, want 2", got)
	}
}

func TestRecommend_NothingFound(t *testing.T) {
	client := &rankerClient{content: `{"recommended_products":[]}`}
	store := session.NewMemoryStore()
	adapter := catalog.NewAdapter(client, store, catalog.NewCorpus(corpusProducts, nil), 5)

	text, err := adapter.Recommend(context.Background(), "s1", "a spaceship", "12345678")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if text != catalog.NotFoundMessage {
		t.Errorf("text = %q", text)
	}
}

func TestRecommend_MalformedRankingIsError(t *testing.T) {
	client := &rankerClient{content: `not json at all`}
	store := session.NewMemoryStore()
	adapter := catalog.NewAdapter(client, store, catalog.NewCorpus(corpusProducts, nil), 5)

	if _, err := adapter.Recommend(context.Background(), "s1", "beer", "12345678"); err == nil {
		t.Fatal("want error for malformed ranking response")
	}
}

func TestCatalogFor_Shards(t *testing.T) {
	corpus := catalog.NewCorpus(corpusProducts, nil)

	if got := corpus.CatalogFor("01234567"); got != "" {
		t.Errorf("zipcode starting with 0 should have no catalog, got %q", got)
	}

	full := corpus.CatalogFor("12345678")
	if got := strings.Count(full, "Name:"); got != 4 {
		t.Errorf("full catalog has %d products, want 4", got)
	}

	reduced := corpus.CatalogFor("91234567")
	if got := strings.Count(reduced, "Name:"); got != 2 {
		t.Errorf("reduced catalog has %d products, want 2", got)
	}
	if !strings.Contains(reduced, "Guinness Beer 350ml") || !strings.Contains(reduced, "Water 500ml") {
		t.Errorf("reduced catalog = %q", reduced)
	}
}

func TestHistoryFor(t *testing.T) {
	corpus := catalog.NewCorpus(nil, []string{"h0", "h1", "h2"})

	if got := corpus.HistoryFor("12345672"); got != "h2" {
		t.Errorf("HistoryFor = %q, want h2", got)
	}
	if got := corpus.HistoryFor("12345679"); got != "" {
		t.Errorf("HistoryFor out of range = %q, want empty", got)
	}
}
