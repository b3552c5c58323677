package core

// MonthTotal is the amount invoiced in one month.
type MonthTotal struct {
	Month int // 1-12
	Name  string
	Total Money
}

// QuarterSummary is the total of a fiscal quarter with its month breakdown.
type QuarterSummary struct {
	Number int // 1-4
	Total  Money
	Months [3]MonthTotal
}

// FiscalStatus is the state of a fiscal threshold indicator.
type FiscalStatus string

const (
	FiscalReached       FiscalStatus = "reached"
	FiscalNotReached    FiscalStatus = "not_reached"
	FiscalNotApplicable FiscalStatus = "n/a"
)

// FiscalIndicator compares the year total with one threshold.
type FiscalIndicator struct {
	Label     string
	Threshold *Money
	Status    FiscalStatus
}

// InvoiceRow is an invoice annotated for display.
type InvoiceRow struct {
	Invoice
	EntityName string
	Quarter    int
}

// EntityCount is the number of invoices issued to one NIF.
type EntityCount struct {
	NIF   string
	Name  string
	Count int
}

// PieSlice is the share of one entity in the year total.
type PieSlice struct {
	Label   string
	Value   Money
	Percent float64
}

// InvoiceDashboard is the yearly invoice overview.
type InvoiceDashboard struct {
	Year     int
	Rows     []InvoiceRow
	Quarters [4]QuarterSummary
	Total    Money
	Count    int
	Skipped  int
	Fiscal   []FiscalIndicator
	ByEntity []EntityCount
	Pie      []PieSlice
}

// Trend is the direction of a year-over-year variation.
type Trend string

const (
	TrendNeutral  Trend = "neutral"
	TrendPositive Trend = "positive"
	TrendNegative Trend = "negative"
)

// Variation compares the average class value of two years.
type Variation struct {
	Percent float64
	Trend   Trend
}

// ValueGroup is one distinct class value and the class types paid at it.
type ValueGroup struct {
	Value Money
	Types []string
}

// TypeCount is the number of weekly classes of one type.
type TypeCount struct {
	Type  string
	Count int
}

// ClassesRow summarises the classes of one entity in a year.
type ClassesRow struct {
	NIF        string
	EntityName string
	NumClasses int
	Values     []ValueGroup
	Types      []TypeCount
	Variation  Variation
	Expired    bool
}
