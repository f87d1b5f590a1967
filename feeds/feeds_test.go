package feeds

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"fyndkarta/fetch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedServer(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("unexpected path %q, want %q", r.URL.Path, path)
			http.NotFound(w, r)
			return
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Error(err)
		}
	}))
}

func failingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
}

func TestRecallFeed(t *testing.T) {
	rss := `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0"><channel>
  <item>
    <title>Butiken AB återkallar ost</title>
    <link>https://www.livsmedelsverket.se/recall/1</link>
    <pubDate>Mon, 03 Aug 2026 08:00:00 GMT</pubDate>
    <description><![CDATA[<p>Produkten kan innehålla glasbitar.</p><p>Ort: Uppsala</p>]]></description>
  </item>
  <item>
    <title>Fisk återkallas från Göteborg</title>
    <link>https://www.livsmedelsverket.se/recall/2</link>
    <pubDate>Tue, 04 Aug 2026 08:00:00 GMT</pubDate>
    <description>Felmärkt allergen.</description>
  </item>
</channel></rss>`

	srv := fixedServer(t, "/rss", rss)
	defer srv.Close()

	f := NewRecallFeed(fetch.New(testLogger()), srv.URL, testLogger())
	items, err := f.Items(context.Background())
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if strings.Contains(first.Summary, "<p>") || !strings.Contains(first.Summary, "glasbitar") {
		t.Errorf("Summary = %q, want markup stripped and text kept", first.Summary)
	}
	if first.Region != "Uppsala" {
		t.Errorf("Region = %q, want Uppsala from Ort: line", first.Region)
	}
	if first.URL != "https://www.livsmedelsverket.se/recall/1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Category != "Återkallelse" || first.Severity != 2 {
		t.Errorf("category/severity = %q/%d, want Återkallelse/2", first.Category, first.Severity)
	}

	if items[1].Region != "Göteborg" {
		t.Errorf("Region = %q, want Göteborg from title", items[1].Region)
	}
}

func TestCrisisFeed(t *testing.T) {
	body := `[
	  {
	    "Headline": "Vattenläcka i Lund",
	    "Preamble": "Stora delar av staden saknar vatten.",
	    "Web": "https://www.krisinformation.se/handelser/1",
	    "Event": "Driftstörning",
	    "Updated": "2026-08-30T10:00:00Z",
	    "Area": [
	      {"Description": "Lunds kommun", "Geometry": {"Point": {"Coordinates": [13.1910, 55.7047]}}},
	      {"Description": "Staffanstorp"}
	    ]
	  },
	  {"BodyText": "Övning pågår."}
	]`

	srv := fixedServer(t, "/v3/updates", body)
	defer srv.Close()

	f := NewCrisisFeed(fetch.New(testLogger()), srv.URL, testLogger())
	items, err := f.Items(context.Background())
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if first.Region != "Lunds kommun, Staffanstorp" {
		t.Errorf("Region = %q", first.Region)
	}
	// Coordinates arrive as [lon, lat]
	if first.Lat == nil || *first.Lat != 55.7047 {
		t.Errorf("Lat = %v, want 55.7047", first.Lat)
	}
	if first.Lng == nil || *first.Lng != 13.1910 {
		t.Errorf("Lng = %v, want 13.1910", first.Lng)
	}
	if first.LevelText != "Driftstörning" {
		t.Errorf("LevelText = %q", first.LevelText)
	}

	second := items[1]
	if second.Title != "Meddelande" {
		t.Errorf("Title = %q, want Meddelande default", second.Title)
	}
	if second.Summary != "Övning pågår." {
		t.Errorf("Summary = %q, want body text fallback", second.Summary)
	}
	if second.URL != "https://www.krisinformation.se" {
		t.Errorf("URL = %q, want site default", second.URL)
	}
	if second.Lat != nil {
		t.Errorf("Lat = %v, want nil without area point", *second.Lat)
	}
}

func TestWarningFeed(t *testing.T) {
	body := `{"features":[
	  {
	    "properties": {
	      "headline": "Röd varning vind",
	      "event": "Vind",
	      "description": "Mycket hårda vindbyar.",
	      "web": "https://www.smhi.se/w/1",
	      "area": "Norra Gotland",
	      "sent": "2026-08-30T06:00:00Z",
	      "severity": "Röd nivå"
	    },
	    "geometry": {"type": "Polygon", "coordinates": [[[18.0, 57.0],[19.0, 57.0],[19.0, 58.0],[18.0, 58.0],[18.0, 57.0]]]}
	  },
	  {
	    "properties": {"event": "Brandrisk", "eventAwarenessName": "Orange"},
	    "geometry": {"type": "Point", "coordinates": [15.0, 59.0]}
	  },
	  {
	    "properties": {"event": "Dimma"},
	    "geometry": {"type": "Polygon", "coordinates": []}
	  }
	]}`

	srv := fixedServer(t, "/warning/alerts/geojson.json", body)
	defer srv.Close()

	f := NewWarningFeed(fetch.New(testLogger()), srv.URL, testLogger())
	items, err := f.Items(context.Background())
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	red := items[0]
	if red.Severity != 3 {
		t.Errorf("Severity = %d, want 3 for röd", red.Severity)
	}
	if red.Lat == nil || *red.Lat != 57.5 || red.Lng == nil || *red.Lng != 18.5 {
		t.Errorf("centroid = %v,%v, want 57.5,18.5", red.Lat, red.Lng)
	}
	wantBounds := []float64{57.0, 18.0, 58.0, 19.0}
	if len(red.Bounds) != 4 {
		t.Fatalf("Bounds = %v, want 4 values", red.Bounds)
	}
	for i, v := range wantBounds {
		if red.Bounds[i] != v {
			t.Errorf("Bounds[%d] = %v, want %v", i, red.Bounds[i], v)
		}
	}
	if red.Region != "Norra Gotland" {
		t.Errorf("Region = %q", red.Region)
	}

	orange := items[1]
	if orange.Severity != 2 {
		t.Errorf("Severity = %d, want 2 for orange", orange.Severity)
	}
	if orange.Lat != nil {
		t.Errorf("Lat = %v, want nil for non-polygon geometry", *orange.Lat)
	}

	unknown := items[2]
	if unknown.Severity != 1 {
		t.Errorf("Severity = %d, want default 1", unknown.Severity)
	}
	if unknown.Lat != nil || len(unknown.Bounds) != 0 {
		t.Error("empty polygon should yield no coordinates")
	}
}

func TestPolygonBoundsMalformed(t *testing.T) {
	// Malformed rings must degrade to "no bounds", never panic.
	tests := []string{
		`[]`,
		`[[]]`,
		`[[[]]]`,
		`[[[18.0]]]`,
		`[[[18.0, 57.0],[19.0]]]`,
		`"not rings"`,
	}
	for _, raw := range tests {
		if bounds, ok := polygonBounds(json.RawMessage(raw)); ok {
			t.Errorf("polygonBounds(%s) = %v, want no bounds", raw, bounds)
		}
	}
}

func TestSeverityLevel(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Röd nivå", 3},
		{"röd varning", 3},
		{"Orange nivå", 2},
		{"Gul nivå", 1},
		{"", 1},
		{"okänd", 1},
	}
	for _, tt := range tests {
		if got := severityLevel(tt.text); got != tt.want {
			t.Errorf("severityLevel(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestFireRiskHourly(t *testing.T) {
	body := `{
	  "approvedTime": "2026-08-30T12:00:00Z",
	  "geometry": [{"coordinates": [[14.0, 58.0], [15.0, 59.0], [16.0, 60.0]]}],
	  "timeSeries": [{
	    "validTime": "2026-08-30T13:00:00Z",
	    "parameters": [
	      {"name": "other", "values": [0, 0, 0]},
	      {"name": "fwi", "values": [4.2, null, 11.5]}
	    ]
	  }]
	}`

	srv := fixedServer(t, "/api/category/fwif1g/version/1/hourly/approvedtime.json", body)
	defer srv.Close()

	f := NewFireRiskFeed(fetch.New(testLogger()), srv.URL, testLogger())
	res, err := f.Hourly(context.Background())
	if err != nil {
		t.Fatalf("Hourly() error = %v", err)
	}

	if res.Meta.Time != "2026-08-30T13:00:00Z" {
		t.Errorf("Meta.Time = %q, want valid time of first step", res.Meta.Time)
	}
	// The null value drops the middle grid point.
	if len(res.Items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(res.Items))
	}
	if res.Items[0].Lon != 14.0 || res.Items[0].Lat != 58.0 || res.Items[0].Value != 4.2 {
		t.Errorf("first item = %+v", res.Items[0])
	}
	if res.Items[1].Value != 11.5 {
		t.Errorf("second item value = %v, want 11.5", res.Items[1].Value)
	}
}

func TestFireRiskPoint(t *testing.T) {
	body := `{
	  "approvedTime": "2026-08-30T12:00:00Z",
	  "timeSeries": [
	    {"validTime": "2026-08-30T13:00:00Z", "parameters": [{"name": "FWI", "values": [3.1]}]},
	    {"validTime": "2026-08-30T14:00:00Z", "parameters": [{"name": "FWI", "values": [null]}]},
	    {"validTime": "2026-08-30T15:00:00Z", "parameters": [{"name": "FWI", "values": [5.7]}]}
	  ]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/category/fwif1g/version/1/hourly/geotype/point/lon/18.07/lat/59.33/data.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	f := NewFireRiskFeed(fetch.New(testLogger()), srv.URL, testLogger())
	res, err := f.Point(context.Background(), 59.33, 18.07)
	if err != nil {
		t.Fatalf("Point() error = %v", err)
	}

	if res.Meta.ApprovedTime != "2026-08-30T12:00:00Z" {
		t.Errorf("Meta.ApprovedTime = %q", res.Meta.ApprovedTime)
	}
	if len(res.Items) != 2 {
		t.Fatalf("len(items) = %d, want 2 (null step dropped)", len(res.Items))
	}
	if res.Items[0].Value != 3.1 || res.Items[0].Time != "2026-08-30T13:00:00Z" {
		t.Errorf("first item = %+v", res.Items[0])
	}
	if res.Items[0].Lat != 59.33 || res.Items[0].Lon != 18.07 {
		t.Errorf("item coordinates = %v,%v, want the queried point", res.Items[0].Lat, res.Items[0].Lon)
	}
}

func TestTempFeed(t *testing.T) {
	body := `{"station":[
	  {"name":"Stockholm A","latitude":59.34,"longitude":18.05,
	   "value":[{"date":1756540800000,"value":"18.5"},{"date":1756544400000,"value":"19.2"}]},
	  {"name":"No readings","latitude":60.0,"longitude":15.0,"value":[]},
	  {"name":"Bad value","latitude":61.0,"longitude":15.0,"value":[{"date":1756544400000,"value":"n/a"}]}
	]}`

	srv := fixedServer(t, "/api/version/latest/parameter/1.json", body)
	defer srv.Close()

	f := NewTempFeed(fetch.New(testLogger()), srv.URL, testLogger())
	items, err := f.Items(context.Background())
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1 (stations without readings skipped)", len(items))
	}
	got := items[0]
	if got.Value != 19.2 {
		t.Errorf("Value = %v, want latest reading 19.2", got.Value)
	}
	if got.Station != "Stockholm A" || got.Lat != 59.34 {
		t.Errorf("item = %+v", got)
	}
	if got.Time != "2025-08-30T09:00:00Z" {
		t.Errorf("Time = %q, want RFC3339 of epoch ms", got.Time)
	}
}

func TestWindFeed(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:georss="http://www.georss.org/georss">
  <entry>
    <title>Måseskär</title>
    <updated>2026-08-30T11:00:00Z</updated>
    <summary>Vindhastighet: 12,4 m/s</summary>
    <georss:point>58.0936 11.3318</georss:point>
  </entry>
  <entry>
    <title>Landsort 7.5 m/s</title>
    <updated>2026-08-30T11:00:00Z</updated>
    <summary>inget värde här</summary>
    <georss:point>58.7423 17.8654</georss:point>
  </entry>
  <entry>
    <title>Utan koordinater 3 m/s</title>
    <updated>2026-08-30T11:00:00Z</updated>
    <summary>3 m/s</summary>
  </entry>
  <entry>
    <title>Utan värde</title>
    <updated>2026-08-30T11:00:00Z</updated>
    <summary>stiltje</summary>
    <georss:point>59.0 18.0</georss:point>
  </entry>
</feed>`

	srv := fixedServer(t, "/api/inspire/metobs-4.atom", atom)
	defer srv.Close()

	f := NewWindFeed(fetch.New(testLogger()), srv.URL, testLogger())
	items, err := f.Items(context.Background())
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if first.Value != 12.4 {
		t.Errorf("Value = %v, want 12.4 (decimal comma)", first.Value)
	}
	if first.Lat != 58.0936 || first.Lng != 11.3318 {
		t.Errorf("coords = %v,%v", first.Lat, first.Lng)
	}

	// Value parsed from title when summary has none.
	if items[1].Value != 7.5 {
		t.Errorf("Value = %v, want 7.5 from title", items[1].Value)
	}
}

func TestFeedsFailingUpstream(t *testing.T) {
	srv := failingServer()
	defer srv.Close()

	logger := testLogger()
	fetcher := fetch.New(logger)
	ctx := context.Background()

	if _, err := NewRecallFeed(fetcher, srv.URL, logger).Items(ctx); err == nil {
		t.Error("recall feed should return error on upstream failure")
	}
	if _, err := NewCrisisFeed(fetcher, srv.URL, logger).Items(ctx); err == nil {
		t.Error("crisis feed should return error on upstream failure")
	}
	if _, err := NewWarningFeed(fetcher, srv.URL, logger).Items(ctx); err == nil {
		t.Error("warning feed should return error on upstream failure")
	}
	if _, err := NewFireRiskFeed(fetcher, srv.URL, logger).Hourly(ctx); err == nil {
		t.Error("fire risk hourly should return error on upstream failure")
	}
	if _, err := NewTempFeed(fetcher, srv.URL, logger).Items(ctx); err == nil {
		t.Error("temp feed should return error on upstream failure")
	}
	if _, err := NewWindFeed(fetcher, srv.URL, logger).Items(ctx); err == nil {
		t.Error("wind feed should return error on upstream failure")
	}
}
