// Package models defines the unified product schema shared by every
// extractor, transformer, and loader. Field names mirror the persisted
// document shape one-to-one.
package models

import (
	"fmt"
	"time"
)

type ProductStatus string

const (
	StatusActive       ProductStatus = "active"
	StatusDiscontinued ProductStatus = "discontinued"
	StatusOutOfStock   ProductStatus = "out_of_stock"
)

type PriceType string

const (
	PriceUnit       PriceType = "unit"
	PriceSetup      PriceType = "setup"
	PriceAdditional PriceType = "additional"
	PriceShipping   PriceType = "shipping"
)

type PrintTechnique string

const (
	ScreenPrint    PrintTechnique = "screen_print"
	PadPrint       PrintTechnique = "pad_print"
	Embroidery     PrintTechnique = "embroidery"
	LaserEngraving PrintTechnique = "laser_engraving"
	DigitalPrint   PrintTechnique = "digital_print"
	FullColor      PrintTechnique = "full_color"
	Debossing      PrintTechnique = "debossing"
	Sublimation    PrintTechnique = "sublimation"
	Transfer       PrintTechnique = "transfer"
)

type DimensionUnit string

const (
	UnitMM   DimensionUnit = "mm"
	UnitCM   DimensionUnit = "cm"
	UnitM    DimensionUnit = "m"
	UnitInch DimensionUnit = "in"
)

type WeightUnit string

const (
	WeightG  WeightUnit = "g"
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
	WeightOZ WeightUnit = "oz"
)

type Currency string

const (
	GBP Currency = "GBP"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

type Dimensions struct {
	Length   float64       `bson:"length,omitempty" json:"length,omitempty"`
	Width    float64       `bson:"width,omitempty" json:"width,omitempty"`
	Height   float64       `bson:"height,omitempty" json:"height,omitempty"`
	Diameter float64       `bson:"diameter,omitempty" json:"diameter,omitempty"`
	Unit     DimensionUnit `bson:"unit" json:"unit"`
}

type Weight struct {
	Value float64    `bson:"value" json:"value"`
	Unit  WeightUnit `bson:"unit" json:"unit"`
}

type Price struct {
	Value       float64    `bson:"value" json:"value"`
	Currency    Currency   `bson:"currency" json:"currency"`
	MinQuantity int        `bson:"min_quantity" json:"min_quantity"`
	MaxQuantity int        `bson:"max_quantity,omitempty" json:"max_quantity,omitempty"`
	Type        PriceType  `bson:"type" json:"type"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	ValidUntil  *time.Time `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
}

type Image struct {
	URL          string `bson:"url" json:"url"`
	Type         string `bson:"type,omitempty" json:"type,omitempty"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	ColorVariant string `bson:"color_variant,omitempty" json:"color_variant,omitempty"`
}

type PrintPosition struct {
	ID          string           `bson:"id" json:"id"`
	Name        string           `bson:"name" json:"name"`
	MaxWidth    float64          `bson:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight   float64          `bson:"max_height,omitempty" json:"max_height,omitempty"`
	MaxArea     float64          `bson:"max_area,omitempty" json:"max_area,omitempty"`
	Unit        DimensionUnit    `bson:"unit" json:"unit"`
	Techniques  []PrintTechnique `bson:"techniques,omitempty" json:"techniques,omitempty"`
	MaxColors   int              `bson:"max_colors,omitempty" json:"max_colors,omitempty"`
	Coordinates map[string]any   `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Images      []Image          `bson:"images,omitempty" json:"images,omitempty"`
}

type PrintOption struct {
	Technique   PrintTechnique `bson:"technique" json:"technique"`
	Position    string         `bson:"position" json:"position"`
	MaxColors   int            `bson:"max_colors" json:"max_colors"`
	SetupCharge float64        `bson:"setup_charge,omitempty" json:"setup_charge,omitempty"`
	Prices      []Price        `bson:"prices,omitempty" json:"prices,omitempty"`
	LeadTime    string         `bson:"lead_time,omitempty" json:"lead_time,omitempty"`
	IsDefault   bool           `bson:"is_default" json:"is_default"`
}

type ColorVariant struct {
	Code     string        `bson:"code" json:"code"`
	Name     string        `bson:"name" json:"name"`
	HexColor string        `bson:"hex_color,omitempty" json:"hex_color,omitempty"`
	PMSColor string        `bson:"pms_color,omitempty" json:"pms_color,omitempty"`
	Images   []Image       `bson:"images,omitempty" json:"images,omitempty"`
	Status   ProductStatus `bson:"status" json:"status"`
}

type StockInfo struct {
	Available   int              `bson:"available" json:"available"`
	DueIns      []map[string]any `bson:"due_ins,omitempty" json:"due_ins,omitempty"`
	LastUpdated *time.Time       `bson:"last_updated,omitempty" json:"last_updated,omitempty"`
}

type Variant struct {
	SKU             string        `bson:"sku" json:"sku"`
	VariantID       string        `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	Color           *ColorVariant `bson:"color,omitempty" json:"color,omitempty"`
	Size            string        `bson:"size,omitempty" json:"size,omitempty"`
	MaterialVariant string        `bson:"material_variant,omitempty" json:"material_variant,omitempty"`
	Dimensions      *Dimensions   `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Weight          *Weight       `bson:"weight,omitempty" json:"weight,omitempty"`
	Prices          []Price       `bson:"prices,omitempty" json:"prices,omitempty"`
	Stock           *StockInfo    `bson:"stock,omitempty" json:"stock,omitempty"`
	Images          []Image       `bson:"images,omitempty" json:"images,omitempty"`
	Status          ProductStatus `bson:"status" json:"status"`
	GTIN            string        `bson:"gtin,omitempty" json:"gtin,omitempty"`
}

type Category struct {
	ID       string `bson:"id,omitempty" json:"id,omitempty"`
	Name     string `bson:"name" json:"name"`
	Level    int    `bson:"level" json:"level"`
	ParentID string `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
}

type ShippingOption struct {
	ServiceType string         `bson:"service_type" json:"service_type"`
	ServiceName string         `bson:"service_name" json:"service_name"`
	Cost        float64        `bson:"cost" json:"cost"`
	Currency    Currency       `bson:"currency" json:"currency"`
	Conditions  map[string]any `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

type Supplier struct {
	ID          string         `bson:"id" json:"id"`
	Name        string         `bson:"name" json:"name"`
	APIVersion  string         `bson:"api_version,omitempty" json:"api_version,omitempty"`
	ContactInfo map[string]any `bson:"contact_info,omitempty" json:"contact_info,omitempty"`
}

// Product is the unified catalog entity. It is owned by the pipeline run that
// created it and treated as immutable once handed to a loader, except for the
// loader stamping UpdatedAt on a successful upsert.
type Product struct {
	ProductID           string   `bson:"product_id" json:"product_id"`
	Supplier            Supplier `bson:"supplier" json:"supplier"`
	SupplierProductCode string   `bson:"supplier_product_code" json:"supplier_product_code"`

	Name             string   `bson:"name" json:"name"`
	Title            string   `bson:"title,omitempty" json:"title,omitempty"`
	ShortDescription string   `bson:"short_description,omitempty" json:"short_description,omitempty"`
	LongDescription  string   `bson:"long_description,omitempty" json:"long_description,omitempty"`
	Keywords         []string `bson:"keywords,omitempty" json:"keywords,omitempty"`

	Categories []Category `bson:"categories,omitempty" json:"categories,omitempty"`
	Brand      string     `bson:"brand,omitempty" json:"brand,omitempty"`

	Dimensions      *Dimensions `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Weight          *Weight     `bson:"weight,omitempty" json:"weight,omitempty"`
	Material        string      `bson:"material,omitempty" json:"material,omitempty"`
	ColorsAvailable []string    `bson:"colors_available,omitempty" json:"colors_available,omitempty"`

	Variants   []Variant `bson:"variants,omitempty" json:"variants,omitempty"`
	BasePrices []Price   `bson:"base_prices,omitempty" json:"base_prices,omitempty"`

	IsPrintable    bool            `bson:"is_printable" json:"is_printable"`
	PrintPositions []PrintPosition `bson:"print_positions,omitempty" json:"print_positions,omitempty"`
	PrintOptions   []PrintOption   `bson:"print_options,omitempty" json:"print_options,omitempty"`

	Images           []Image  `bson:"images,omitempty" json:"images,omitempty"`
	ArtworkTemplates []string `bson:"artwork_templates,omitempty" json:"artwork_templates,omitempty"`

	MinimumOrderQuantity int              `bson:"minimum_order_quantity" json:"minimum_order_quantity"`
	CartonQuantity       int              `bson:"carton_quantity,omitempty" json:"carton_quantity,omitempty"`
	LeadTime             string           `bson:"lead_time,omitempty" json:"lead_time,omitempty"`
	ShippingOptions      []ShippingOption `bson:"shipping_options,omitempty" json:"shipping_options,omitempty"`

	CountryOfOrigin string `bson:"country_of_origin,omitempty" json:"country_of_origin,omitempty"`
	TariffCode      string `bson:"tariff_code,omitempty" json:"tariff_code,omitempty"`
	CommodityCode   string `bson:"commodity_code,omitempty" json:"commodity_code,omitempty"`

	Status    ProductStatus `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
	LastSync  time.Time     `bson:"last_sync" json:"last_sync"`

	// RawData keeps the supplier-native record for debugging.
	RawData map[string]any `bson:"raw_data,omitempty" json:"raw_data,omitempty"`
}

// Validate checks the fields every loader depends on.
func (p *Product) Validate() error {
	if p.ProductID == "" {
		return fmt.Errorf("product missing product_id")
	}
	if p.Supplier.ID == "" {
		return fmt.Errorf("product %s missing supplier id", p.ProductID)
	}
	if p.Name == "" {
		return fmt.Errorf("product %s missing name", p.ProductID)
	}
	return nil
}
