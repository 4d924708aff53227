package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hitoshi/sailings/internal/listing"
	"github.com/hitoshi/sailings/internal/render"
)

// writeListing は表示区間の航海を表形式で書き出す。
// カードと同じ書式（価格、日付範囲、泊数）を使う。
func writeListing(out io.Writer, v listing.View) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%d trips found (sort: %s)\n\n", v.TotalItems, v.Sort.Token())
	fmt.Fprintln(tw, "PRICE\tSAILING\tSHIP\tLINE\tDATES\tNIGHTS\tREGION\tPORTS")

	for _, s := range v.Items {
		card := render.NewCardView(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			card.PriceLabel,
			card.Name,
			card.ShipName,
			card.LineName,
			card.DateBadge,
			card.Nights,
			card.Region,
			strings.Join(card.Ports, " > "),
		)
	}

	if len(v.Items) == 0 {
		fmt.Fprintln(tw, "(no sailings on this page)")
	}

	fmt.Fprintf(tw, "\npage %d of %d\n", v.Page, max(v.TotalPages, 1))

	return tw.Flush()
}
