package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"asset-rental-backend/internal/domain"
)

// RentalTerm is the priced span of a rental request or extension
type RentalTerm struct {
	StartDate    time.Time
	EndDate      time.Time
	Months       int
	MonthlyPrice int64
	TotalPrice   int64
}

// ParseDate converts a yyyy-mm-dd formatted string into a UTC calendar date
func ParseDate(dateStr string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(dateStr), "-")
	if len(parts) != 3 || len(parts[0]) != 4 {
		return time.Time{}, domain.ErrInvalidDate
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate.WithMessage(fmt.Sprintf("invalid year: %q", parts[0]))
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, domain.ErrInvalidDate.WithMessage("month must be between 1 and 12")
	}

	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > DaysInMonth(year, month) {
		return time.Time{}, domain.ErrInvalidDate.WithMessage(fmt.Sprintf("day must be between 1 and %d", DaysInMonth(year, month)))
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a calendar date in the wire format
func FormatDate(t time.Time) string {
	return domain.DateOf(t).Format(domain.DateLayout)
}

// DaysInMonth returns the number of days in a given calendar month
func DaysInMonth(year, month int) int {
	if month == 2 {
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}

	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}

	return 31
}

// CalculateRentalTerm prices a rental of months billing months starting at
// start. Billing months are always domain.DaysPerMonth days long.
func CalculateRentalTerm(start time.Time, months int, monthlyPrice int64) (RentalTerm, error) {
	if months < 1 || months > domain.MaxDurationMonths {
		return RentalTerm{}, domain.ErrInvalidDuration
	}
	if monthlyPrice <= 0 {
		return RentalTerm{}, domain.ErrInvalidAmount.WithMessage("monthly price must be positive")
	}
	if monthlyPrice > math.MaxInt64/int64(months) {
		return RentalTerm{}, domain.ErrInvalidAmount.WithMessage("total price is out of range")
	}

	startDate := domain.DateOf(start)
	return RentalTerm{
		StartDate:    startDate,
		EndDate:      domain.AddMonths(startDate, months),
		Months:       months,
		MonthlyPrice: monthlyPrice,
		TotalPrice:   int64(months) * monthlyPrice,
	}, nil
}
