package domain

// PriceBar is one daily OHLCV bar for an instrument.
// Keyed by (InstrumentID, Date) in the timeseries store.
type PriceBar struct {
	InstrumentID string
	Date         Date
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
}

// InstrumentMeta is reference metadata for one instrument, refreshed by the
// fetch-metadata step and cached as last-known-good in the object store.
type InstrumentMeta struct {
	InstrumentID string  `json:"instrumentId"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	Segment      string  `json:"segment"` // market segment, e.g. "core30"
	IndexWeight  float64 `json:"indexWeight"`
}

// MetaSet is the instrument universe for one run.
type MetaSet struct {
	Instruments []InstrumentMeta `json:"instruments"`
}

// IDs returns the instrument IDs in universe order.
func (m *MetaSet) IDs() []string {
	ids := make([]string, 0, len(m.Instruments))
	for _, inst := range m.Instruments {
		ids = append(ids, inst.InstrumentID)
	}
	return ids
}
