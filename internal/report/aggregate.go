// AngelaMos | 2026
// aggregate.go

package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/order"
)

const NoActivityMessage = "no orders were placed in the selected range"

// Aggregate summarises the orders of a range. Cancelled orders show up in
// the status breakdown and the cancelled figures of the summary; revenue,
// customers and days ignore them. Customers and days rank by order count,
// then by amount. Days are keyed by the calendar date of OrderDate in its
// own location.
func Aggregate(rows []Row, topN int) Result {
	res := Result{
		Summary: Summary{
			TotalAmount:     decimal.Zero,
			AverageTicket:   decimal.Zero,
			CancelledAmount: decimal.Zero,
		},
		ByStatus:     []StatusBreakdown{},
		TopCustomers: []CustomerTotal{},
		TopDays:      []DayTotal{},
	}
	if len(rows) == 0 {
		res.NoActivity = true
		res.Message = NoActivityMessage
		return res
	}

	statuses := map[string]*StatusBreakdown{}
	customers := map[string]*CustomerTotal{}
	days := map[string]*DayTotal{}

	for _, row := range rows {
		sb, ok := statuses[row.Status]
		if !ok {
			sb = &StatusBreakdown{Status: row.Status, Subtotal: decimal.Zero}
			statuses[row.Status] = sb
		}
		sb.Count++
		sb.Subtotal = sb.Subtotal.Add(row.Total)

		if order.Status(row.Status) == order.StatusCancelled {
			res.Summary.CancelledCount++
			res.Summary.CancelledAmount = res.Summary.CancelledAmount.Add(row.Total)
			continue
		}

		res.Summary.OrderCount++
		res.Summary.TotalAmount = res.Summary.TotalAmount.Add(row.Total)

		if row.UserID != nil {
			c, ok := customers[*row.UserID]
			if !ok {
				c = &CustomerTotal{
					UserID:     *row.UserID,
					Name:       row.Name,
					Email:      row.Email,
					TotalSpent: decimal.Zero,
				}
				customers[*row.UserID] = c
			}
			c.OrderCount++
			c.TotalSpent = c.TotalSpent.Add(row.Total)
		}

		key := row.OrderDate.Format(time.DateOnly)
		d, ok := days[key]
		if !ok {
			d = &DayTotal{Date: key, Total: decimal.Zero}
			days[key] = d
		}
		d.OrderCount++
		d.Total = d.Total.Add(row.Total)
	}

	res.Summary.TotalAmount = res.Summary.TotalAmount.Round(2)
	res.Summary.CancelledAmount = res.Summary.CancelledAmount.Round(2)
	if res.Summary.OrderCount > 0 {
		res.Summary.AverageTicket = res.Summary.TotalAmount.
			Div(decimal.NewFromInt(int64(res.Summary.OrderCount))).
			Round(2)
	}

	for _, name := range order.StatusNames() {
		if sb, ok := statuses[name]; ok {
			sb.Subtotal = sb.Subtotal.Round(2)
			res.ByStatus = append(res.ByStatus, *sb)
			delete(statuses, name)
		}
	}
	// statuses left over were written by an older schema; keep them visible
	leftover := make([]string, 0, len(statuses))
	for name := range statuses {
		leftover = append(leftover, name)
	}
	sort.Strings(leftover)
	for _, name := range leftover {
		res.ByStatus = append(res.ByStatus, *statuses[name])
	}

	for _, c := range customers {
		c.TotalSpent = c.TotalSpent.Round(2)
		res.TopCustomers = append(res.TopCustomers, *c)
	}
	sort.Slice(res.TopCustomers, func(i, j int) bool {
		a, b := res.TopCustomers[i], res.TopCustomers[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		if cmp := a.TotalSpent.Cmp(b.TotalSpent); cmp != 0 {
			return cmp > 0
		}
		return a.UserID < b.UserID
	})

	for _, d := range days {
		d.Total = d.Total.Round(2)
		res.TopDays = append(res.TopDays, *d)
	}
	sort.Slice(res.TopDays, func(i, j int) bool {
		a, b := res.TopDays[i], res.TopDays[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Date < b.Date
	})

	if topN > 0 {
		if len(res.TopCustomers) > topN {
			res.TopCustomers = res.TopCustomers[:topN]
		}
		if len(res.TopDays) > topN {
			res.TopDays = res.TopDays[:topN]
		}
	}
	return res
}
