package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/gradebook/internal/adapters/http/api"
	"github.com/okian/gradebook/internal/adapters/repository"
	"github.com/okian/gradebook/internal/adapters/source"
	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/scoring"
	"github.com/okian/gradebook/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps serves a fixed snapshot through a real store.
type mockDeps struct {
	store     *repository.SnapshotStore
	reloadErr error
	reloads   int
	reports   []string
}

func (m *mockDeps) Snapshot(ctx context.Context) (*query.Snapshot, error) {
	return m.store.Current(ctx)
}

func (m *mockDeps) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return m.store.TopN(ctx, n)
}

func (m *mockDeps) Rank(ctx context.Context, name string) (types.Entry, error) {
	return m.store.Rank(ctx, name)
}

func (m *mockDeps) GroupReport(ctx context.Context, group string) ([]byte, error) {
	snap, err := m.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := snap.GroupReport(group); err != nil {
		return nil, err
	}
	m.reports = append(m.reports, "group:"+group)
	return []byte("%PDF-1.4 group"), nil
}

func (m *mockDeps) RosterReport(_ context.Context, title string, f query.Filter) ([]byte, error) {
	m.reports = append(m.reports, fmt.Sprintf("roster:%s:%s:%t", title, f.Group, f.ScholarsOnly))
	return []byte("%PDF-1.4 roster"), nil
}

func (m *mockDeps) Reload(_ context.Context) (types.RunResult, error) {
	m.reloads++
	if m.reloadErr != nil {
		return types.RunResult{}, m.reloadErr
	}
	return types.RunResult{RunID: "run-2", Records: 5}, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "totalStudents": m.store.Count(context.Background())}
}

func newDeps(t *testing.T, publish bool) *mockDeps {
	t.Helper()
	store := repository.NewSnapshotStore(repository.WithMetrics(false))
	if publish {
		rows := []struct {
			name, group string
			score       float64
		}{
			{"Anna Smith", "A-1", 97},
			{"Boris Ivanov", "A-1", 61},
			{"Clara Jones", "B-2", 82},
			{"Dmitry Anan", "B-2", 70},
			{"Elena Brun", "A-1", 91},
		}
		in := make([]model.NormalizedRecord, len(rows))
		for i, r := range rows {
			in[i] = model.NormalizedRecord{
				RawRecord: model.RawRecord{Row: i + 1, Name: r.name, Group: r.group},
				Subjects:  map[string]float64{"Math points": r.score},
			}
		}
		scored, err := scoring.NewEngine().Score(context.Background(), in, []string{"Math points"})
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		schema := model.Schema{Header: []string{"Name", "Group", "Math points"}, NameColumn: "Name", GroupColumn: "Group", Subjects: []string{"Math points"}}
		if err := store.Publish(context.Background(), query.New("run-1", schema, scored, time.Now())); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	return &mockDeps{store: store}
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a server without a snapshot", t, func() {
		h := api.NewServer(newDeps(t, false)).Routes()

		Convey("Health reports starting", func() {
			rec := do(h, http.MethodGet, "/healthz")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(rec)["status"], ShouldEqual, "starting")
		})

		Convey("Queries report not ready", func() {
			rec := do(h, http.MethodGet, "/summary")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(rec)["code"], ShouldEqual, "not_ready")
		})
	})

	Convey("Given a server with a snapshot", t, func() {
		h := api.NewServer(newDeps(t, true)).Routes()

		Convey("Health reports ok", func() {
			rec := do(h, http.MethodGet, "/healthz")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["snapshot"], ShouldEqual, "run-1")
			So(body["records"], ShouldEqual, 5)
		})

		Convey("Metrics are exposed in text format", func() {
			_ = do(h, http.MethodGet, "/summary")
			rec := do(h, http.MethodGet, "/metrics")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "http_requests_total")
			So(rec.Body.String(), ShouldContainSubstring, `endpoint="/summary"`)
		})

		Convey("Stats are JSON", func() {
			rec := do(h, http.MethodGet, "/stats")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["totalStudents"], ShouldEqual, 5)
		})
	})
}

func TestStudents(t *testing.T) {
	Convey("Given a server with a snapshot", t, func() {
		h := api.NewServer(newDeps(t, true), api.WithMaxResults(2)).Routes()

		Convey("Exact lookup ignores case", func() {
			rec := do(h, http.MethodGet, "/students?name=anna%20smith")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["name"], ShouldEqual, "Anna Smith")
			So(body["scholarship"], ShouldEqual, true)
			So(body["rank"], ShouldEqual, 1)
		})

		Convey("Exact misses are 404", func() {
			rec := do(h, http.MethodGet, "/students?name=Zed")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["code"], ShouldEqual, "not_found")
		})

		Convey("Substring lookups return a capped list", func() {
			rec := do(h, http.MethodGet, "/students?name=an&match=contains")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["count"], ShouldEqual, 3)
			So(body["truncated"], ShouldEqual, true)
			So(len(body["results"].([]any)), ShouldEqual, 2)

			rec = do(h, http.MethodGet, "/students?name=zzz&match=contains")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["count"], ShouldEqual, 0)
		})

		Convey("Bad input is 400", func() {
			So(do(h, http.MethodGet, "/students").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/students?name=a&match=fuzzy").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Chart data lists subject scores", func() {
			rec := do(h, http.MethodGet, "/students/Clara%20Jones/chart")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			points := body["points"].([]any)
			So(len(points), ShouldEqual, 1)
			So(points[0].(map[string]any)["value"], ShouldEqual, 82)

			So(do(h, http.MethodGet, "/students/Nobody/chart").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Rank returns the leaderboard entry", func() {
			rec := do(h, http.MethodGet, "/students/boris%20ivanov/rank")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["rank"], ShouldEqual, 5)
			So(do(h, http.MethodGet, "/students/Nobody/rank").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given a server with a snapshot", t, func() {
		h := api.NewServer(newDeps(t, true), api.WithMaxResults(3)).Routes()

		Convey("Top entries come in rank order", func() {
			rec := do(h, http.MethodGet, "/leaderboard?limit=2")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].Name, ShouldEqual, "Anna Smith")
			So(entries[1].Name, ShouldEqual, "Elena Brun")
		})

		Convey("Without a limit the list is capped by max results", func() {
			rec := do(h, http.MethodGet, "/leaderboard")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
		})

		Convey("Limits are validated", func() {
			So(do(h, http.MethodGet, "/leaderboard?limit=ten").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/leaderboard?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			rec := do(h, http.MethodGet, "/leaderboard?limit=4")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["code"], ShouldEqual, "limit_exceeded")
		})
	})
}

func TestGroupsAndSummary(t *testing.T) {
	Convey("Given a server with a snapshot", t, func() {
		deps := newDeps(t, true)
		h := api.NewServer(deps).Routes()

		Convey("Groups are listed in first-seen order", func() {
			rec := do(h, http.MethodGet, "/groups")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["groups"], ShouldResemble, []any{"A-1", "B-2"})
		})

		Convey("A group lists its students", func() {
			rec := do(h, http.MethodGet, "/groups/a-1")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["count"], ShouldEqual, 3)

			rec = do(h, http.MethodGet, "/groups/Z-9")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["code"], ShouldEqual, "empty_result_set")
		})

		Convey("Distribution counts bands", func() {
			rec := do(h, http.MethodGet, "/groups/A-1/distribution")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["scholarship"], ShouldEqual, 2)
			So(body["non_scholarship"], ShouldEqual, 1)

			rec = do(h, http.MethodGet, "/distribution")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Summary covers everyone or one group", func() {
			rec := do(h, http.MethodGet, "/summary")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["count"], ShouldEqual, 5)
			So(body["scholarship_count"], ShouldEqual, 3)
			So(body["top_scorer"], ShouldEqual, "Anna Smith")
			So(body["bottom_scorer"], ShouldEqual, "Boris Ivanov")

			rec = do(h, http.MethodGet, "/summary?group=B-2")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["count"], ShouldEqual, 2)

			rec = do(h, http.MethodGet, "/summary?group=Z-9")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["code"], ShouldEqual, "empty_result_set")
		})

		Convey("Scholars are listed", func() {
			rec := do(h, http.MethodGet, "/scholars?group=B-2")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["count"], ShouldEqual, 1)
		})

		Convey("Reports are served as PDF", func() {
			rec := do(h, http.MethodGet, "/groups/A-1/report.pdf")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldEqual, "application/pdf")
			So(bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")), ShouldBeTrue)

			So(do(h, http.MethodGet, "/groups/Z-9/report.pdf").Code, ShouldEqual, http.StatusNotFound)

			rec = do(h, http.MethodGet, "/roster.pdf?group=B-2&scholars=true&title=Scholars")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(deps.reports, ShouldResemble, []string{"group:A-1", "roster:Scholars:B-2:true"})

			So(do(h, http.MethodGet, "/roster.pdf?scholars=maybe").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReload(t *testing.T) {
	Convey("Given a server", t, func() {
		deps := newDeps(t, true)
		h := api.NewServer(deps).Routes()

		Convey("POST /reload returns the run", func() {
			rec := do(h, http.MethodPost, "/reload")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["run_id"], ShouldEqual, "run-2")
			So(deps.reloads, ShouldEqual, 1)
		})

		Convey("Structural load failures are 422", func() {
			deps.reloadErr = fmt.Errorf("load: %w", source.ErrMissingColumn)
			rec := do(h, http.MethodPost, "/reload")
			So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(rec)["code"], ShouldEqual, "load_failed")

			deps.reloadErr = scoring.ErrNoNumericColumns
			So(do(h, http.MethodPost, "/reload").Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Other methods are rejected", func() {
			So(do(h, http.MethodGet, "/reload").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a server with CORS origins", t, func() {
		h := api.NewServer(newDeps(t, true), api.WithCORSOrigins([]string{"https://school.example"})).Routes()

		Convey("Allowed origins are echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/groups", nil)
			req.Header.Set("Origin", "https://school.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://school.example")
		})
	})
}
