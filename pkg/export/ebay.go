package export

import (
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

const ebayCategory = "166675"

// EbayRow is one eBay File Exchange listing.
type EbayRow struct {
	Action            string `csv:"Action(SiteID=UK)"`
	ItemID            string `csv:"ItemID"`
	Category          string `csv:"Category"`
	Title             string `csv:"Title"`
	Description       string `csv:"Description"`
	ConditionID       string `csv:"ConditionID"`
	PicURL            string `csv:"PicURL"`
	Quantity          int    `csv:"Quantity"`
	StartPrice        string `csv:"StartPrice"`
	Format            string `csv:"Format"`
	Duration          string `csv:"Duration"`
	ShippingType      string `csv:"ShippingType"`
	ShippingOption    string `csv:"ShippingService-1:Option"`
	ShippingCost      string `csv:"ShippingService-1:Cost"`
	DispatchTimeMax   int    `csv:"DispatchTimeMax"`
	ReturnsAccepted   string `csv:"ReturnsAcceptedOption"`
	RefundOption      string `csv:"RefundOption"`
	ReturnsWithin     string `csv:"ReturnsWithinOption"`
	ShippingCostPaid  string `csv:"ShippingCostPaidByOption"`
	Brand             string `csv:"*C:Brand"`
	Material          string `csv:"*C:Material"`
	Type              string `csv:"*C:Type"`
	Colour            string `csv:"*C:Colour"`
	Size              string `csv:"*C:Size"`
	MountingSpecifics string `csv:"*C:Mounting"`
}

// EbayRows builds the listing rows for products.
func EbayRows(products []*product.Product, opts Options) []EbayRow {
	rows := make([]EbayRow, 0, len(products))
	for _, p := range products {
		mounting := p.Mounting.Display()
		size := p.Size.DisplayCM()
		// PicURL takes several URLs separated by |.
		pics := ""
		for i, t := range render.MarketplaceTypes {
			u := opts.ImageURL(p.MNumber, t)
			if u == "" {
				break
			}
			if i > 0 {
				pics += "|"
			}
			pics += u
		}
		rows = append(rows, EbayRow{
			Action:            "Add",
			Category:          ebayCategory,
			Title:             truncate(fmt.Sprintf("%s Sign - %s Aluminium %s", p.Description, size, mounting), 80),
			Description:       ebayDescription(p),
			ConditionID:       "1000",
			PicURL:            pics,
			Quantity:          Quantity,
			StartPrice:        strconv.FormatFloat(p.Size.Spec().Price, 'f', 2, 64),
			Format:            "FixedPrice",
			Duration:          "GTC",
			ShippingType:      "Flat",
			ShippingOption:    "UK_RoyalMailSecondClassStandard",
			ShippingCost:      "0",
			DispatchTimeMax:   3,
			ReturnsAccepted:   "ReturnsAccepted",
			RefundOption:      "MoneyBack",
			ReturnsWithin:     "Days_30",
			ShippingCostPaid:  "Buyer",
			Brand:             Brand,
			Material:          Material,
			Type:              "Safety Sign",
			Colour:            p.Color.Display(),
			Size:              size,
			MountingSpecifics: mounting,
		})
	}
	return rows
}

func ebayDescription(p *product.Product) string {
	return fmt.Sprintf(`<p><strong>%s</strong></p>
<p>Premium quality aluminium sign with UV-resistant printing.</p>
<ul>
<li>Size: %s</li>
<li>Material: Brushed Aluminium</li>
<li>Finish: %s</li>
<li>Mounting: %s</li>
<li>Weatherproof and durable</li>
</ul>`, html.EscapeString(p.Description), p.Size.DisplayCM(), p.Color.Display(), p.Mounting.Display())
}

// WriteEbay writes an eBay File Exchange CSV for products to w.
func WriteEbay(w io.Writer, products []*product.Product, opts Options) error {
	if len(products) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no products to export")
	}
	rows := EbayRows(products, opts)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write ebay csv")
	}
	return nil
}
