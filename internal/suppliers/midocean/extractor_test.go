package midocean

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
)

func collect(t *testing.T, seq func(func(etl.RawRecord, error) bool)) ([]etl.RawRecord, error) {
	t.Helper()

	var records []etl.RawRecord
	var firstErr error
	seq(func(rec etl.RawRecord, err error) bool {
		if err != nil {
			firstErr = err
			return false
		}
		records = append(records, rec)
		return true
	})
	return records, firstErr
}

func TestExtractProductsFromSampleData(t *testing.T) {
	ex, err := NewExtractor(sampleConfig())
	require.NoError(t, err)

	records, streamErr := collect(t, ex.ExtractProducts(context.Background()))
	require.NoError(t, streamErr)
	require.Len(t, records, 2)
	assert.Equal(t, "MO9231", records[0]["master_code"])
	assert.Equal(t, "KC2211", records[1]["master_code"])
}

func TestExtractPricingFilter(t *testing.T) {
	ex, err := NewExtractor(sampleConfig())
	require.NoError(t, err)

	all, streamErr := collect(t, ex.ExtractPricing(context.Background(), nil))
	require.NoError(t, streamErr)
	assert.Len(t, all, 3)

	filtered, streamErr := collect(t, ex.ExtractPricing(context.Background(), []string{"KC2211-06"}))
	require.NoError(t, streamErr)
	require.Len(t, filtered, 1)
	assert.Equal(t, "KC2211-06", filtered[0]["sku"])
}

func TestExtractStockYieldsNothing(t *testing.T) {
	ex, err := NewExtractor(sampleConfig())
	require.NoError(t, err)

	records, streamErr := collect(t, ex.ExtractStock(context.Background(), nil))
	require.NoError(t, streamErr)
	assert.Empty(t, records)
}

func TestPricingDataIsKeyedBySKU(t *testing.T) {
	ex, err := NewExtractor(sampleConfig())
	require.NoError(t, err)

	pricing, err := ex.PricingData(context.Background())
	require.NoError(t, err)
	require.Contains(t, pricing, "MO9231-03")
	assert.Equal(t, "3,19", pricing["MO9231-03"]["price"])

	// Second call returns the cached map.
	again, err := ex.PricingData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pricing, again)
}

func TestValidateConnectionWithSampleData(t *testing.T) {
	ex, err := NewExtractor(sampleConfig())
	require.NoError(t, err)
	assert.True(t, ex.ValidateConnection(context.Background()))
}

func TestMissingSampleDataFile(t *testing.T) {
	cfg := sampleConfig()
	cfg.API.SampleDataPath = "testdata/missing.json"
	ex, err := NewExtractor(cfg)
	require.NoError(t, err)

	assert.False(t, ex.ValidateConnection(context.Background()))

	_, streamErr := collect(t, ex.ExtractProducts(context.Background()))
	assert.Error(t, streamErr)
}

func apiConfig() config.SupplierConfig {
	return config.SupplierConfig{
		SupplierID: "midocean",
		API:        config.APIConfig{APIKey: "test-key", Language: "en"},
	}
}

func TestExtractProductsFromAPI(t *testing.T) {
	ex, err := NewExtractor(apiConfig())
	require.NoError(t, err)

	httpmock.ActivateNonDefault(ex.client)
	defer httpmock.DeactivateAndReset()

	var gotAuth string
	httpmock.RegisterResponder(http.MethodGet, productsEndpoint,
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			assert.Equal(t, "en", req.URL.Query().Get("language"))
			return httpmock.NewJsonResponse(200, []map[string]any{
				{"master_code": "MO9231", "product_name": "Umbrella"},
			})
		})

	records, streamErr := collect(t, ex.ExtractProducts(context.Background()))
	require.NoError(t, streamErr)
	require.Len(t, records, 1)
	assert.Equal(t, "MO9231", records[0]["master_code"])
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestExtractProductsAPIErrorStatus(t *testing.T) {
	ex, err := NewExtractor(apiConfig())
	require.NoError(t, err)

	httpmock.ActivateNonDefault(ex.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, productsEndpoint,
		httpmock.NewStringResponder(http.StatusForbidden, "invalid api key"))

	_, streamErr := collect(t, ex.ExtractProducts(context.Background()))
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "403")
}

func TestValidateConnectionAgainstAPI(t *testing.T) {
	ex, err := NewExtractor(apiConfig())
	require.NoError(t, err)

	httpmock.ActivateNonDefault(ex.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, productsEndpoint,
		httpmock.NewStringResponder(http.StatusOK, "[]"))
	assert.True(t, ex.ValidateConnection(context.Background()))

	httpmock.RegisterResponder(http.MethodGet, productsEndpoint,
		httpmock.NewStringResponder(http.StatusUnauthorized, "no"))
	assert.False(t, ex.ValidateConnection(context.Background()))
}

func TestPrintDataFromAPI(t *testing.T) {
	ex, err := NewExtractor(apiConfig())
	require.NoError(t, err)

	httpmock.ActivateNonDefault(ex.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, printDataEndpoint,
		httpmock.NewJsonResponderOrPanic(200, map[string]any{
			"products": []map[string]any{{"master_code": "MO9231"}},
		}))

	doc, err := ex.PrintData(context.Background())
	require.NoError(t, err)
	assert.Contains(t, doc, "products")

	// Cached: a second call must not hit the endpoint again.
	httpmock.Reset()
	_, err = ex.PrintData(context.Background())
	require.NoError(t, err)
}
