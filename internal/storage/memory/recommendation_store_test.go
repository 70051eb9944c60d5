package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/storage"
)

func record(id string, score float64) *domain.RecommendationRecord {
	action := domain.ActionHold
	if score > 0.5 {
		action = domain.ActionBuy
	}
	return &domain.RecommendationRecord{
		InstrumentID: id,
		BaseScore:    score,
		BaseAction:   action,
		FinalScore:   score,
		FinalAction:  action,
		Confidence:   domain.ConfidenceMedium,
	}
}

func TestRecommendationPutAndGet(t *testing.T) {
	s := NewRecommendationStore()
	ctx := context.Background()
	date := domain.Date("2026-03-03")

	if err := s.Put(ctx, date, record("7203", 0.8)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, date, "7203")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FinalAction != domain.ActionBuy {
		t.Fatalf("FinalAction = %v, want buy", got.FinalAction)
	}

	if _, err := s.Get(ctx, date, "0000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecommendationPutUpserts(t *testing.T) {
	s := NewRecommendationStore()
	ctx := context.Background()
	date := domain.Date("2026-03-03")

	if err := s.Put(ctx, date, record("7203", 0.8)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	refined := record("7203", 0.8)
	score := -0.9
	act := domain.ActionSell
	refined.RefinedScore = &score
	refined.RefinedAction = &act
	refined.FinalScore = score
	refined.FinalAction = act
	refined.HasRefinement = true
	if err := s.Put(ctx, date, refined); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}

	got, err := s.Get(ctx, date, "7203")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasRefinement || got.FinalAction != domain.ActionSell {
		t.Fatalf("upsert lost refinement: %+v", got)
	}

	all, err := s.GetByDate(ctx, date)
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert duplicated the key: %d records", len(all))
	}
}

func TestRecommendationGetByDateOrdered(t *testing.T) {
	s := NewRecommendationStore()
	ctx := context.Background()
	date := domain.Date("2026-03-03")

	for _, id := range []string{"9984", "6758", "7203"} {
		if err := s.Put(ctx, date, record(id, 0.1)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// A different date stays out of the result.
	if err := s.Put(ctx, "2026-03-04", record("7203", 0.1)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.GetByDate(ctx, date)
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].InstrumentID >= got[i].InstrumentID {
			t.Fatalf("not ordered: %v then %v", got[i-1].InstrumentID, got[i].InstrumentID)
		}
	}
}

func TestRecommendationPutInvalid(t *testing.T) {
	s := NewRecommendationStore()
	ctx := context.Background()

	if err := s.Put(ctx, "", record("7203", 0.1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("empty date: err = %v, want ErrInvalidInput", err)
	}
	if err := s.Put(ctx, "2026-03-03", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("nil record: err = %v, want ErrInvalidInput", err)
	}
}
