// Package midocean implements the MidOcean supplier: an extractor over the
// four gateway endpoints (products, pricelist, printdata, printpricelist)
// and a transformer onto the unified product schema.
package midocean

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
	"github.com/promoforge/catsync/pkg/logger"
	"github.com/promoforge/catsync/pkg/utils"
)

const (
	productsEndpoint       = "https://api.midocean.com/gateway/products/2.0"
	priceListEndpoint      = "https://api.midocean.com/gateway/pricelist/2.0"
	printDataEndpoint      = "https://api.midocean.com/gateway/printdata/1.0"
	printPriceListEndpoint = "https://api.midocean.com/gateway/printpricelist/2.0"
)

// Extractor streams MidOcean records, either from the live API or from a
// structured sample-data file. Auxiliary lookups (pricing map, print data,
// print pricing) are fetched once and cached for the instance lifetime.
// Not safe for concurrent use.
type Extractor struct {
	apiKey        string
	language      string
	useSampleData bool
	samplePath    string
	client        *http.Client

	fixtureCache *fixture
	pricingMap   map[string]map[string]any
	printData    map[string]any
	printPricing map[string]any
}

func NewExtractor(cfg config.SupplierConfig) (*Extractor, error) {
	language := cfg.API.Language
	if language == "" {
		language = "en"
	}
	return &Extractor{
		apiKey:        cfg.API.APIKey,
		language:      language,
		useSampleData: cfg.API.UseSampleData,
		samplePath:    cfg.API.SampleDataPath,
		client:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ExtractProducts streams raw product records lazily.
func (e *Extractor) ExtractProducts(ctx context.Context) iter.Seq2[etl.RawRecord, error] {
	return func(yield func(etl.RawRecord, error) bool) {
		if e.useSampleData {
			f, err := e.loadFixtureOnce()
			if err != nil {
				yield(nil, err)
				return
			}
			for _, p := range f.Products {
				if !yield(p, nil) {
					return
				}
			}
			return
		}

		var products []map[string]any
		if err := e.getJSON(ctx, productsEndpoint, true, &products); err != nil {
			yield(nil, errors.Wrap(err, "fetching products"))
			return
		}
		for _, p := range products {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// ExtractPricing streams raw price entries, optionally filtered by SKU.
func (e *Extractor) ExtractPricing(ctx context.Context, productCodes []string) iter.Seq2[etl.RawRecord, error] {
	filter := make(map[string]struct{}, len(productCodes))
	for _, code := range productCodes {
		filter[code] = struct{}{}
	}

	return func(yield func(etl.RawRecord, error) bool) {
		entries, err := e.priceEntries(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, entry := range entries {
			if len(filter) > 0 {
				if _, ok := filter[utils.String(entry["sku"])]; !ok {
					continue
				}
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// ExtractStock yields nothing: MidOcean has no dedicated stock feed, which
// is not an error.
func (e *Extractor) ExtractStock(context.Context, []string) iter.Seq2[etl.RawRecord, error] {
	return func(func(etl.RawRecord, error) bool) {}
}

// PricingData returns the sku → price-entry map, fetched on first use.
func (e *Extractor) PricingData(ctx context.Context) (map[string]map[string]any, error) {
	if e.pricingMap != nil {
		return e.pricingMap, nil
	}

	entries, err := e.priceEntries(ctx)
	if err != nil {
		return nil, err
	}

	m := make(map[string]map[string]any, len(entries))
	for _, entry := range entries {
		if sku := utils.String(entry["sku"]); sku != "" {
			m[sku] = entry
		}
	}
	e.pricingMap = m
	return m, nil
}

// PrintData returns the print techniques and positions document, fetched on
// first use.
func (e *Extractor) PrintData(ctx context.Context) (map[string]any, error) {
	if e.printData != nil {
		return e.printData, nil
	}

	if e.useSampleData {
		f, err := e.loadFixtureOnce()
		if err != nil {
			return nil, err
		}
		e.printData = f.PrintData
		return e.printData, nil
	}

	var doc map[string]any
	if err := e.getJSON(ctx, printDataEndpoint, false, &doc); err != nil {
		return nil, errors.Wrap(err, "fetching print data")
	}
	e.printData = doc
	return doc, nil
}

// PrintPricing returns the print price list document, fetched on first use.
func (e *Extractor) PrintPricing(ctx context.Context) (map[string]any, error) {
	if e.printPricing != nil {
		return e.printPricing, nil
	}

	if e.useSampleData {
		f, err := e.loadFixtureOnce()
		if err != nil {
			return nil, err
		}
		e.printPricing = f.PrintPriceList
		return e.printPricing, nil
	}

	var doc map[string]any
	if err := e.getJSON(ctx, printPriceListEndpoint, false, &doc); err != nil {
		return nil, errors.Wrap(err, "fetching print pricing")
	}
	e.printPricing = doc
	return doc, nil
}

// ValidateConnection probes the data source cheaply: the fixture must load,
// or the products endpoint must answer 200. Never propagates a failure.
func (e *Extractor) ValidateConnection(ctx context.Context) bool {
	if e.useSampleData {
		_, err := e.loadFixtureOnce()
		if err != nil {
			logger.Errorf("midocean: sample data validation failed: %v", err)
		}
		return err == nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productsEndpoint+"?language="+e.language, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Errorf("midocean: connection validation failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

func (e *Extractor) priceEntries(ctx context.Context) ([]map[string]any, error) {
	if e.useSampleData {
		f, err := e.loadFixtureOnce()
		if err != nil {
			return nil, err
		}
		return f.PriceList.Price, nil
	}

	var doc priceList
	if err := e.getJSON(ctx, priceListEndpoint, false, &doc); err != nil {
		return nil, errors.Wrap(err, "fetching price list")
	}
	return doc.Price, nil
}

func (e *Extractor) loadFixtureOnce() (*fixture, error) {
	if e.fixtureCache != nil {
		return e.fixtureCache, nil
	}
	f, err := loadFixture(e.samplePath)
	if err != nil {
		return nil, err
	}
	e.fixtureCache = f
	return f, nil
}

func (e *Extractor) getJSON(ctx context.Context, endpoint string, withLanguage bool, out any) error {
	url := endpoint
	if withLanguage {
		url += "?language=" + e.language
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
