package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
)

// printer выводит результаты в виде таблиц
type printer struct {
	w         io.Writer
	currency  string
	precision int32
}

func newPrinter(w io.Writer, currency string, precision int32) *printer {
	if precision <= 0 {
		precision = 2
	}
	return &printer{w: w, currency: currency, precision: precision}
}

func (p *printer) money(v float64) string {
	return p.currency + decimal.NewFromFloat(v).StringFixed(p.precision)
}

func (p *printer) signedMoney(v float64) string {
	d := decimal.NewFromFloat(v)
	sign := "+"
	if d.IsNegative() {
		sign = "-"
	}
	return sign + p.currency + d.Abs().StringFixed(p.precision)
}

func num(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

func limit(l sensitivityv1.Limit) string {
	if l.Unbounded {
		return "unbounded"
	}
	return num(l.Value)
}

func (p *printer) solution(status, message string, objective float64, vars []sensitivityv1.VariableValue, prices []sensitivityv1.ShadowPrice) {
	fmt.Fprintf(p.w, "Status: %s\n", status)
	if message != "" {
		fmt.Fprintf(p.w, "Message: %s\n", message)
	}
	if status != "Optimal" {
		return
	}
	fmt.Fprintf(p.w, "Profit: %s\n\n", p.money(objective))

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tVALUE")
	for _, v := range vars {
		fmt.Fprintf(tw, "%s\t%s\n", v.Name, num(v.Value))
	}
	_ = tw.Flush()

	fmt.Fprintln(p.w)
	tw = tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONSTRAINT\tSHADOW PRICE")
	for _, sp := range prices {
		fmt.Fprintf(tw, "%s\t%s\n", sp.Label, num(sp.Value))
	}
	_ = tw.Flush()
}

func (p *printer) analysis(a *sensitivityv1.AnalysisResult) {
	if a.ID != "" {
		fmt.Fprintf(p.w, "Analysis: %s\n", a.ID)
	}
	p.solution(a.Status, a.Message, a.Objective, a.Variables, a.ShadowPrices)
	if len(a.Ranges) == 0 {
		return
	}

	fmt.Fprintln(p.w)
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONSTRAINT\tRHS\tSHADOW PRICE\tMAX DECREASE\tMAX INCREASE\tINTERVAL")
	for _, r := range a.Ranges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Label, num(r.CurrentRHS), num(r.ShadowPrice), limit(r.DecreaseLimit), limit(r.IncreaseLimit), r.Interval)
	}
	_ = tw.Flush()
}

func (p *printer) scenario(s *sensitivityv1.ScenarioResult) {
	if len(s.PerConstraint) == 0 {
		fmt.Fprintln(p.w, "No non-zero changes were proposed.")
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONSTRAINT\tDELTA\tLIMIT\tFEASIBLE\tIMPACT")
	for _, c := range s.PerConstraint {
		feasible := "yes"
		if !c.Feasible {
			feasible = "NO"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Label, num(c.Delta), limit(c.Limit), feasible, c.Formula)
	}
	_ = tw.Flush()
	fmt.Fprintln(p.w)

	if !s.AllFeasible {
		var labels []string
		for _, c := range s.PerConstraint {
			if !c.Feasible {
				labels = append(labels, c.Label)
			}
		}
		fmt.Fprintln(p.w, "One or more changes violate the feasibility limits. The scenario is not viable.")
		fmt.Fprintf(p.w, "Out of range: %s\n", strings.Join(labels, ", "))
		return
	}

	fmt.Fprintln(p.w, "All changes are within the feasibility limits.")
	fmt.Fprintf(p.w, "Baseline profit: %s\n", p.money(s.BaselineProfit))
	fmt.Fprintf(p.w, "Total impact:    %s\n", p.signedMoney(s.TotalImpact))
	fmt.Fprintf(p.w, "New profit:      %s\n", p.money(s.NewProfit))
}
