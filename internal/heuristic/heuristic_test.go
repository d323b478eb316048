package heuristic

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/jackzampolin/intake/internal/prompts/requisition"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/record"
	"github.com/jackzampolin/intake/internal/urgency"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestExtract(t *testing.T) {
	t.Run("full requisition note", func(t *testing.T) {
		rec := Extract("Need 500 bags of UltraTech Cement for Project Alpha site B, urgent delivery by 15th March 2026", testNow)

		if rec.MaterialName != "UltraTech Cement" {
			t.Errorf("material = %q", rec.MaterialName)
		}
		if rec.Quantity != 500 || rec.Unit != "bags" {
			t.Errorf("quantity = %v %s", rec.Quantity, rec.Unit)
		}
		if rec.ProjectName == nil || *rec.ProjectName != "Alpha" {
			t.Errorf("project = %v", rec.ProjectName)
		}
		if rec.Location == nil || *rec.Location != "site B" {
			t.Errorf("location = %v", rec.Location)
		}
		if rec.Deadline == nil || *rec.Deadline != "2026-03-15T00:00:00" {
			t.Errorf("deadline = %v", rec.Deadline)
		}
		if rec.Urgency != urgency.High {
			t.Errorf("urgency = %s", rec.Urgency)
		}
	})

	t.Run("dimensioned material", func(t *testing.T) {
		rec := Extract("25mm steel bars, 40 units needed at Mumbai site", testNow)

		if rec.MaterialName != "25mm steel bars" {
			t.Errorf("material = %q", rec.MaterialName)
		}
		// The dimension wins the quantity scan; it appears first.
		if rec.Quantity != 25 || rec.Unit != "mm" {
			t.Errorf("quantity = %v %s", rec.Quantity, rec.Unit)
		}
		if rec.Location == nil || *rec.Location != "Mumbai" {
			t.Errorf("location = %v", rec.Location)
		}
		if rec.Deadline != nil {
			t.Errorf("deadline = %v, want null", *rec.Deadline)
		}
		if rec.Urgency != urgency.Medium {
			t.Errorf("urgency = %s, want medium from 'needed'", rec.Urgency)
		}
	})

	t.Run("ISO deadline drives urgency", func(t *testing.T) {
		rec := Extract("Order 3 truckloads of river sand for Project Beta, Pune by 2026-04-01", testNow)

		if rec.MaterialName != "river sand" {
			t.Errorf("material = %q", rec.MaterialName)
		}
		if rec.Quantity != 3 || rec.Unit != "truckloads" {
			t.Errorf("quantity = %v %s", rec.Quantity, rec.Unit)
		}
		if rec.ProjectName == nil || *rec.ProjectName != "Beta" {
			t.Errorf("project = %v", rec.ProjectName)
		}
		if rec.Location == nil || *rec.Location != "Pune" {
			t.Errorf("location = %v", rec.Location)
		}
		if rec.Deadline == nil || *rec.Deadline != "2026-04-01" {
			t.Errorf("deadline = %v", rec.Deadline)
		}
		if rec.Urgency != urgency.Medium {
			t.Errorf("urgency = %s, want medium for a 17-day deadline", rec.Urgency)
		}
	})

	t.Run("ordinal dates normalize", func(t *testing.T) {
		rec := Extract("deliver 10 kg of grout by 3rd April 2026", testNow)
		if rec.Deadline == nil || *rec.Deadline != "2026-04-03T00:00:00" {
			t.Errorf("deadline = %v", rec.Deadline)
		}
	})

	t.Run("vague deadlines stay null", func(t *testing.T) {
		for _, text := range []string{
			"20 bags of cement by month end",
			"5 tons of gravel needed by Friday",
		} {
			rec := Extract(text, testNow)
			if rec.Deadline != nil {
				t.Errorf("Extract(%q) deadline = %q, want null", text, *rec.Deadline)
			}
		}
	})

	t.Run("unmatchable text takes defaults", func(t *testing.T) {
		rec := Extract("hello there", testNow)
		want := record.Record{MaterialName: "Unknown", Unit: "units", Urgency: urgency.Low}
		if !reflect.DeepEqual(rec, want) {
			t.Errorf("rec = %+v, want %+v", rec, want)
		}
	})

	t.Run("output passes enforcement unchanged", func(t *testing.T) {
		notes := []string{
			"Need 500 bags of UltraTech Cement for Project Alpha site B, urgent delivery by 15th March 2026",
			"25mm steel bars, 40 units needed at Mumbai site",
			"hello there",
		}
		for _, note := range notes {
			rec := Extract(note, testNow)
			if err := record.Validate(rec); err != nil {
				t.Errorf("Extract(%q) fails validation: %v", note, err)
			}

			b, err := json.Marshal(rec)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var raw map[string]any
			if err := json.Unmarshal(b, &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if enforced := record.Enforce(raw); !reflect.DeepEqual(enforced, rec) {
				t.Errorf("enforcement changed heuristic output:\nbefore %+v\nafter  %+v", rec, enforced)
			}
		}
	})
}

func TestClient_Chat(t *testing.T) {
	t.Run("extracts from a rendered prompt", func(t *testing.T) {
		client := NewClient()
		client.now = func() time.Time { return testNow }

		req := requisition.CreateChatRequest("Need 500 bags of UltraTech Cement for Project Alpha site B, urgent delivery by 15th March 2026")
		result, err := client.Chat(context.Background(), req)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}

		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Provider != "heuristic" {
			t.Errorf("Provider = %s", result.Provider)
		}
		if result.RequestID == "" {
			t.Error("expected a request ID")
		}

		rec, perr := requisition.ParseResult(result.ParsedJSON)
		if perr != nil {
			t.Fatalf("ParseResult: %v", perr)
		}
		if rec.MaterialName != "UltraTech Cement" {
			t.Errorf("material = %q", rec.MaterialName)
		}
		if rec.Urgency != urgency.High {
			t.Errorf("urgency = %s", rec.Urgency)
		}
	})

	t.Run("prompt scaffolding never leaks into fields", func(t *testing.T) {
		client := NewClient()
		client.now = func() time.Time { return testNow }

		// A note the generic material pattern matches, so a scan of the
		// full prompt text would grab the prompt's own words instead.
		req := requisition.CreateChatRequest("requires 90 units of blue paving stones")
		result, err := client.Chat(context.Background(), req)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}

		rec, perr := requisition.ParseResult(result.ParsedJSON)
		if perr != nil {
			t.Fatalf("ParseResult: %v", perr)
		}
		if rec.MaterialName == "Extract structured information" {
			t.Error("material was matched from the prompt scaffolding")
		}
		if rec.Quantity != 90 || rec.Unit != "units" {
			t.Errorf("quantity = %v %s", rec.Quantity, rec.Unit)
		}
	})

	t.Run("bare note without prompt wrapping", func(t *testing.T) {
		client := NewClient()
		client.now = func() time.Time { return testNow }

		result, err := client.Chat(context.Background(), &providers.ChatRequest{
			Messages: []providers.Message{{Role: "user", Content: "12 kg of adhesive for Project Gamma"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		rec, perr := requisition.ParseResult(result.ParsedJSON)
		if perr != nil {
			t.Fatalf("ParseResult: %v", perr)
		}
		if rec.ProjectName == nil || *rec.ProjectName != "Gamma" {
			t.Errorf("project = %v", rec.ProjectName)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient()
		if _, err := client.Chat(ctx, requisition.CreateChatRequest("x")); err == nil {
			t.Error("expected error from canceled context")
		}
	})
}
