// Package catalog recommends products for a free-text need. The corpus is
// a location-sharded product dataset plus purchase-history excerpts;
// ranking is delegated to the completion service, which selects from the
// catalog text the adapter renders for the shard.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cartwheel-ai/cartwheel/session"
)

// Dataset record shapes as stored on disk.
type productRecord struct {
	RowID             int     `json:"row_id"`
	ProductName       string  `json:"product_name"`
	FullPrice         float64 `json:"full_price"`
	VolumeHectoliters float64 `json:"product_volume_in_hectoliters"`
}

type productsFile struct {
	Products []productRecord `json:"products"`
}

type historiesFile struct {
	PurchaseHistories []json.RawMessage `json:"purchase_histories"`
}

// Corpus holds the product dataset and purchase-history excerpts, both
// immutable after load.
type Corpus struct {
	products  []session.Product
	histories []string
}

// NewCorpus builds a Corpus from in-memory data.
func NewCorpus(products []session.Product, histories []string) *Corpus {
	return &Corpus{products: products, histories: histories}
}

// LoadCorpus reads the product and purchase-history datasets from disk.
// Dataset volumes are stored in hectoliters and converted to liters,
// rounded to 3 decimals.
func LoadCorpus(productsPath, historiesPath string) (*Corpus, error) {
	data, err := os.ReadFile(productsPath)
	if err != nil {
		return nil, fmt.Errorf("read products dataset: %w", err)
	}
	var pf productsFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decode products dataset: %w", err)
	}

	products := make([]session.Product, 0, len(pf.Products))
	for _, rec := range pf.Products {
		products = append(products, session.Product{
			ID:         rec.RowID,
			Name:       rec.ProductName,
			UnitPrice:  math.Round(rec.FullPrice*100) / 100,
			UnitVolume: math.Round(100*rec.VolumeHectoliters*1000) / 1000,
		})
	}

	var histories []string
	if historiesPath != "" {
		data, err := os.ReadFile(historiesPath)
		if err != nil {
			return nil, fmt.Errorf("read purchase histories: %w", err)
		}
		var hf historiesFile
		if err := json.Unmarshal(data, &hf); err != nil {
			return nil, fmt.Errorf("decode purchase histories: %w", err)
		}
		for _, h := range hf.PurchaseHistories {
			histories = append(histories, string(h))
		}
	}

	return NewCorpus(products, histories), nil
}

// CatalogFor renders the catalog text for the location shard selected by
// the zipcode's first digit: "0" has no serviceable catalog, "9" carries a
// reduced assortment, everything else sees the full catalog.
func (c *Corpus) CatalogFor(zipcode string) string {
	if zipcode == "" || zipcode[0] == '0' {
		return ""
	}

	var b strings.Builder
	for i, p := range c.products {
		if zipcode[0] == '9' && i%3 > 0 {
			continue
		}
		fmt.Fprintf(&b, "Name: %s - Price: R$%.2f\n", p.Name, p.UnitPrice)
	}
	return b.String()
}

// HistoryFor returns the purchase-history excerpt for the shard selected
// by the zipcode's last digit, or "" when none exists.
func (c *Corpus) HistoryFor(zipcode string) string {
	if zipcode == "" {
		return ""
	}
	idx := int(zipcode[len(zipcode)-1] - '0')
	if idx < 0 || idx >= len(c.histories) {
		return ""
	}
	return c.histories[idx]
}

// Find looks up a corpus product by name, case-insensitively.
func (c *Corpus) Find(name string) (session.Product, bool) {
	for _, p := range c.products {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return session.Product{}, false
}
