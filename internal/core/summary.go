package core

import "time"

type (
	// MonthlyReport totals one calendar month of the ledger.
	MonthlyReport struct {
		Year     int
		Month    int
		Income   Money
		Expenses Money
		Net      Money
		Count    int
	}

	// CategoryTotal is one category's share of a month.
	CategoryTotal struct {
		Category string
		Kind     Kind
		Total    Money
		Count    int
	}

	// WeekdayTotal is the expense load of one day of the week across a
	// month. Reports carry all seven days, zero filled, Sunday first.
	WeekdayTotal struct {
		Weekday time.Weekday
		Total   Money
		Count   int
	}
)
