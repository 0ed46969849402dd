package midocean

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
	"github.com/promoforge/catsync/pkg/logger"
	"github.com/promoforge/catsync/pkg/models"
	"github.com/promoforge/catsync/pkg/utils"
)

// techniqueCodes maps MidOcean technique codes onto the unified enum.
// Unknown codes are silently skipped, never treated as errors.
var techniqueCodes = map[string]models.PrintTechnique{
	"B":   models.Debossing,
	"E":   models.Embroidery,
	"L0":  models.LaserEngraving,
	"L1":  models.LaserEngraving,
	"L2":  models.LaserEngraving,
	"L3":  models.LaserEngraving,
	"L4":  models.LaserEngraving,
	"L5":  models.LaserEngraving,
	"L6":  models.LaserEngraving,
	"L7":  models.LaserEngraving,
	"RL":  models.LaserEngraving,
	"P0":  models.PadPrint,
	"P1":  models.PadPrint,
	"P2":  models.PadPrint,
	"P3":  models.PadPrint,
	"P4":  models.PadPrint,
	"P5":  models.PadPrint,
	"P6":  models.PadPrint,
	"P7":  models.PadPrint,
	"PD0": models.DigitalPrint,
	"PD1": models.DigitalPrint,
	"PD2": models.DigitalPrint,
	"PD3": models.DigitalPrint,
	"PD4": models.DigitalPrint,
	"PD5": models.DigitalPrint,
	"PD6": models.DigitalPrint,
	"PD7": models.DigitalPrint,
	"RD0": models.DigitalPrint,
	"RD1": models.DigitalPrint,
	"RD2": models.DigitalPrint,
	"RD3": models.DigitalPrint,
	"S0":  models.ScreenPrint,
	"S1":  models.ScreenPrint,
	"S2":  models.ScreenPrint,
	"S3":  models.ScreenPrint,
	"S4":  models.ScreenPrint,
	"S5":  models.ScreenPrint,
	"S6":  models.ScreenPrint,
	"S7":  models.ScreenPrint,
	"ST":  models.ScreenPrint,
	"ST0": models.ScreenPrint,
	"ST1": models.ScreenPrint,
	"ST2": models.ScreenPrint,
	"RS0": models.ScreenPrint,
	"RS1": models.ScreenPrint,
	"RS2": models.ScreenPrint,
	"RS3": models.ScreenPrint,
	"RS4": models.ScreenPrint,
	"RS5": models.ScreenPrint,
	"RS6": models.ScreenPrint,
	"RS7": models.ScreenPrint,
	"T1":  models.Transfer,
	"TD":  models.Transfer,
	"TD1": models.Transfer,
	"TDT": models.Transfer,
	"TT":  models.Transfer,
	"TR":  models.Transfer,
	"TC":  models.Transfer,
	"TS":  models.Sublimation,
	"TS1": models.Sublimation,
	"TS2": models.Sublimation,
	"TS3": models.Sublimation,
	"TS4": models.Sublimation,
	"TSM": models.Sublimation,
	"TST": models.Sublimation,
}

// Transformer maps MidOcean records onto the unified product schema. The
// pricing, print-data, and print-pricing tables are injected via Prime
// before the first batch.
type Transformer struct {
	pricing      map[string]map[string]any
	printData    map[string]any
	printPricing map[string]any
}

func NewTransformer(_ config.SupplierConfig) (*Transformer, error) {
	return &Transformer{
		pricing:      map[string]map[string]any{},
		printData:    map[string]any{},
		printPricing: map[string]any{},
	}, nil
}

// Prime fetches the cross-endpoint auxiliary tables from the extractor. The
// registry runs it during pipeline construction, before streaming begins.
func (t *Transformer) Prime(ctx context.Context, ex etl.Extractor) error {
	mo, ok := ex.(*Extractor)
	if !ok {
		return errors.Newf("midocean transformer primed with %T extractor", ex)
	}

	pricing, err := mo.PricingData(ctx)
	if err != nil {
		return errors.Wrap(err, "loading pricing data")
	}
	printData, err := mo.PrintData(ctx)
	if err != nil {
		return errors.Wrap(err, "loading print data")
	}
	printPricing, err := mo.PrintPricing(ctx)
	if err != nil {
		return errors.Wrap(err, "loading print pricing")
	}

	t.pricing = pricing
	t.printData = printData
	t.printPricing = printPricing
	return nil
}

// CreateSupplierInfo returns the constant MidOcean supplier descriptor.
func (t *Transformer) CreateSupplierInfo() models.Supplier {
	return models.Supplier{
		ID:         "midocean",
		Name:       "MidOcean",
		APIVersion: "2.0",
		ContactInfo: map[string]any{
			"website":  "https://www.midocean.com",
			"api_base": "https://api.midocean.com/gateway/",
		},
	}
}

// TransformProduct maps one raw record. A record without a master_code or
// product name is unmappable and fails with a *etl.TransformationError.
func (t *Transformer) TransformProduct(raw etl.RawRecord) (*models.Product, error) {
	masterCode := utils.String(raw["master_code"])
	if masterCode == "" {
		return nil, &etl.TransformationError{
			RecordID: "unknown",
			Err:      errors.New("missing master_code"),
		}
	}

	name := utils.String(raw["product_name"])
	if name == "" {
		return nil, &etl.TransformationError{
			RecordID: masterCode,
			Err:      errors.New("missing product_name"),
		}
	}

	product := &models.Product{
		ProductID:            "midocean_" + masterCode,
		Supplier:             t.CreateSupplierInfo(),
		SupplierProductCode:  masterCode,
		Name:                 name,
		ShortDescription:     utils.String(raw["short_description"]),
		LongDescription:      utils.String(raw["long_description"]),
		Categories:           extractCategories(raw),
		Brand:                utils.String(raw["brand"]),
		Dimensions:           extractDimensions(raw),
		Weight:               extractWeight(raw),
		Material:             utils.String(raw["material"]),
		Variants:             t.extractVariants(raw),
		IsPrintable:          strings.EqualFold(utils.String(raw["printable"]), "yes"),
		PrintPositions:       t.extractPrintPositions(masterCode),
		PrintOptions:         t.extractPrintOptions(),
		MinimumOrderQuantity: 1,
		CountryOfOrigin:      utils.String(raw["country_of_origin"]),
		TariffCode:           utils.String(raw["commodity_code"]),
		Status:               models.StatusActive,
		RawData:              raw,
	}

	if qty, ok := utils.ParseInt(raw["outer_carton_quantity"]); ok {
		product.CartonQuantity = qty
	}
	if len(product.Variants) > 0 {
		product.Images = product.Variants[0].Images
		if prices := product.Variants[0].Prices; len(prices) > 0 {
			product.BasePrices = prices[:1]
		}
	}

	return product, nil
}

// TransformBatch maps records independently; one record's failure is logged
// and the record dropped, never aborting the rest of the batch.
func (t *Transformer) TransformBatch(raws []etl.RawRecord) []*models.Product {
	products := make([]*models.Product, 0, len(raws))
	for _, raw := range raws {
		product, err := t.TransformProduct(raw)
		if err != nil {
			logger.Errorf("midocean: %v", err)
			continue
		}
		products = append(products, product)
	}
	return products
}

func extractDimensions(raw etl.RawRecord) *models.Dimensions {
	length, okL := utils.ParseFloat(raw["length"])
	width, okW := utils.ParseFloat(raw["width"])
	height, okH := utils.ParseFloat(raw["height"])
	if !okL && !okW && !okH {
		return nil
	}

	unit := models.UnitCM
	if strings.EqualFold(utils.String(raw["length_unit"]), "mm") {
		unit = models.UnitMM
	}
	return &models.Dimensions{Length: length, Width: width, Height: height, Unit: unit}
}

func extractWeight(raw etl.RawRecord) *models.Weight {
	value, ok := utils.ParseFloat(raw["gross_weight"])
	if !ok {
		value, ok = utils.ParseFloat(raw["net_weight"])
	}
	if !ok {
		return nil
	}

	unit := models.WeightKG
	if strings.EqualFold(utils.String(raw["gross_weight_unit"]), "g") {
		unit = models.WeightG
	}
	return &models.Weight{Value: value, Unit: unit}
}

func extractCategories(raw etl.RawRecord) []models.Category {
	var categories []models.Category

	if class := utils.String(raw["product_class"]); class != "" {
		categories = append(categories, models.Category{Name: class, Level: 1})
	}

	variants := rawSlice(raw["variants"])
	if len(variants) == 0 {
		return categories
	}

	// Category levels live on the variants; the first carries them all.
	first := variants[0]
	for level := 1; level <= 3; level++ {
		key := fmt.Sprintf("category_level%d", level)
		if name := utils.String(first[key]); name != "" {
			categories = append(categories, models.Category{Name: name, Level: level})
		}
	}
	return categories
}

func (t *Transformer) extractVariants(raw etl.RawRecord) []models.Variant {
	var variants []models.Variant

	for _, vd := range rawSlice(raw["variants"]) {
		sku := utils.String(vd["sku"])
		images := extractImages(vd)

		variant := models.Variant{
			SKU:       sku,
			VariantID: utils.String(vd["variant_id"]),
			Color: &models.ColorVariant{
				Code:     utils.String(vd["color_code"]),
				Name:     utils.String(vd["color_description"]),
				PMSColor: utils.String(vd["pms_color"]),
				Images:   images,
				Status:   models.StatusActive,
			},
			Prices: t.variantPrices(sku),
			Images: images,
			GTIN:   utils.String(vd["gtin"]),
			Status: variantStatus(vd),
		}
		variants = append(variants, variant)
	}
	return variants
}

func extractImages(vd map[string]any) []models.Image {
	var images []models.Image
	for _, asset := range rawSlice(vd["digital_assets"]) {
		if utils.String(asset["type"]) != "image" {
			continue
		}
		subtype := utils.String(asset["subtype"])
		images = append(images, models.Image{
			URL:         utils.String(asset["url"]),
			Type:        subtype,
			Description: strings.ReplaceAll(subtype, "_", " "),
		})
	}
	return images
}

func (t *Transformer) variantPrices(sku string) []models.Price {
	entry, ok := t.pricing[sku]
	if !ok {
		return nil
	}

	value, ok := utils.ParseFloat(entry["price"])
	if !ok {
		logger.Warnf("midocean: unparseable price for sku %s", sku)
		return nil
	}

	price := models.Price{
		Value:       value,
		Currency:    models.GBP,
		MinQuantity: 1,
		Type:        models.PriceUnit,
	}
	if until, ok := utils.ParseDate(utils.String(entry["valid_until"])); ok {
		price.ValidUntil = &until
	}
	return []models.Price{price}
}

func (t *Transformer) extractPrintPositions(masterCode string) []models.PrintPosition {
	var productDoc map[string]any
	for _, p := range rawSlice(t.printData["products"]) {
		if utils.String(p["master_code"]) == masterCode {
			productDoc = p
			break
		}
	}
	if productDoc == nil {
		return nil
	}

	var positions []models.PrintPosition
	for _, pos := range rawSlice(productDoc["printing_positions"]) {
		id := utils.String(pos["position_id"])

		var techniques []models.PrintTechnique
		for _, tech := range rawSlice(pos["printing_techniques"]) {
			if mapped, ok := techniqueCodes[utils.String(tech["id"])]; ok {
				techniques = append(techniques, mapped)
			}
		}

		var images []models.Image
		for _, img := range rawSlice(pos["images"]) {
			images = append(images, models.Image{
				URL:         utils.String(img["print_position_image_with_area"]),
				Type:        "print_position",
				Description: "Print position: " + id,
			})
		}

		maxWidth, _ := utils.ParseFloat(pos["max_print_size_width"])
		maxHeight, _ := utils.ParseFloat(pos["max_print_size_height"])

		positions = append(positions, models.PrintPosition{
			ID:         id,
			Name:       id,
			MaxWidth:   maxWidth,
			MaxHeight:  maxHeight,
			Unit:       models.UnitMM,
			Techniques: techniques,
			Images:     images,
		})
	}
	return positions
}

func (t *Transformer) extractPrintOptions() []models.PrintOption {
	var options []models.PrintOption

	for _, tech := range rawSlice(t.printPricing["print_techniques"]) {
		technique, ok := techniqueCodes[utils.String(tech["id"])]
		if !ok {
			continue
		}

		setup, _ := utils.ParseFloat(tech["setup"])

		var prices []models.Price
		for _, cost := range rawSlice(tech["var_costs"]) {
			for _, scale := range rawSlice(cost["scales"]) {
				value, okV := utils.ParseFloat(scale["price"])
				minQty, okQ := utils.ParseInt(scale["minimum_quantity"])
				if !okV || !okQ {
					continue
				}
				prices = append(prices, models.Price{
					Value:       value,
					Currency:    models.GBP,
					MinQuantity: minQty,
					Type:        models.PriceUnit,
				})
			}
		}

		options = append(options, models.PrintOption{
			Technique:   technique,
			Position:    "various",
			MaxColors:   1,
			SetupCharge: setup,
			Prices:      prices,
		})
	}
	return options
}

// variantStatus flags discontinued variants via the discontinuation date or
// the PLC status text. 2099-12-31 is MidOcean's "never" sentinel.
func variantStatus(vd map[string]any) models.ProductStatus {
	if d := utils.String(vd["discontinued_date"]); d != "" && d != "2099-12-31" {
		return models.StatusDiscontinued
	}
	if strings.Contains(strings.ToUpper(utils.String(vd["plc_status_description"])), "DISCONTINUED") {
		return models.StatusDiscontinued
	}
	return models.StatusActive
}

// rawSlice coerces a raw JSON array field into []map[string]any, tolerating
// both decoded-JSON and already-typed values.
func rawSlice(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
