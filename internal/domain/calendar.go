package domain

// HolidayClass is the exchange calendar classification for a date.
// Values mirror the calendar provider's holiday division codes.
type HolidayClass string

const (
	HolidayClassNonTrading HolidayClass = "0" // market closed
	HolidayClassTrading    HolidayClass = "1" // regular session
	HolidayClassHalfDayAM  HolidayClass = "2" // morning session only
	HolidayClassHalfDayPM  HolidayClass = "3" // afternoon session only
)

// TradingDayRecord is the Oracle's answer for a single date.
// Fetched per call and never persisted; the calendar provider stays
// authoritative.
type TradingDayRecord struct {
	Date         Date
	IsTradingDay bool
	HolidayClass HolidayClass
}
