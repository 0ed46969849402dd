package midocean

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// fixture is the structured sample-data file used when the API toggle is
// off. Each section mirrors one API endpoint.
type fixture struct {
	Products       []map[string]any `json:"products"`
	PriceList      priceList        `json:"pricelist"`
	PrintData      map[string]any   `json:"printdata"`
	PrintPriceList map[string]any   `json:"printpricelist"`
}

type priceList struct {
	Currency string           `json:"currency"`
	Price    []map[string]any `json:"price"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sample data %s", path)
	}

	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing sample data %s", path)
	}
	return &f, nil
}
