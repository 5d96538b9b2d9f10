package aggregate

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

var hundred = decimal.NewFromInt(100)

// RenderText writes the console reconciliation report.
func RenderText(w io.Writer, sum Summary) error {
	p := &printer{w: w}

	p.line("PAYMENT RECONCILIATION")
	p.line("")
	p.line("%-16s %6s %14s", "", "count", "amount")
	p.bucket("pending", sum.Pending)
	p.bucket("finalized", sum.Finalized)
	p.bucket("total", sum.Total())
	p.line("%-16s %6d", "exempt", sum.Exempt)
	p.line("%-16s %21s", "recovery rate", sum.RecoveryRate.Mul(hundred).StringFixed(2)+"%")

	p.line("")
	p.line("BY CATEGORY")
	p.line("%-16s %6s %14s %6s %14s %6s", "", "due", "outstanding", "paid", "collected", "exempt")
	for _, c := range models.Categories {
		b := sum.ByCategory[c]
		p.line("%-16s %6d %14s %6d %14s %6d",
			c, b.Pending.Count, formatAmount(b.Pending.Amount), b.Finalized.Count, formatAmount(b.Finalized.Amount), b.Exempt)
	}

	p.line("")
	p.line("BY PAYMENT MODE")
	for _, m := range models.PaymentModes {
		p.bucket(string(m), sum.ByPaymentMode[m])
	}

	p.line("")
	p.line("BY SETTLEMENT CHANNEL")
	for _, c := range models.SettlementChannels {
		p.bucket(string(c), sum.ByChannel[c])
	}
	return p.err
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(0)
}

// printer remembers the first write error so the report reads top to bottom.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) bucket(label string, b Bucket) {
	p.line("%-16s %6d %14s", label, b.Count, formatAmount(b.Amount))
}
