package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"recibos/internal/services"
)

func TestParseViewParams(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  ViewParams
	}{
		{
			name:  "all parameters",
			query: url.Values{"year": {"2024"}, "sort": {"Value"}, "dir": {"DESC"}, "compare": {"2023"}},
			want:  ViewParams{Year: 2024, HasYear: true, Sort: "value", Dir: "desc", Compare: 2023},
		},
		{
			name:  "empty",
			query: url.Values{},
			want:  ViewParams{},
		},
		{
			name:  "invalid year ignored",
			query: url.Values{"year": {"abc"}, "compare": {"20"}},
			want:  ViewParams{},
		},
		{
			name:  "year out of range",
			query: url.Values{"year": {"12345"}},
			want:  ViewParams{},
		},
		{
			name:  "whitespace trimmed",
			query: url.Values{"year": {" 2025 "}, "sort": {" nif "}},
			want:  ViewParams{Year: 2025, HasYear: true, Sort: "nif"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseViewParams(tt.query); got != tt.want {
				t.Errorf("ParseViewParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestViewParams_SortState(t *testing.T) {
	def := services.SortState{Key: services.SortByName}

	p := ViewParams{Sort: "nif", Dir: "desc"}
	if got := p.SortState(def, services.SortByNIF, services.SortByName); got != (services.SortState{Key: "nif", Desc: true}) {
		t.Errorf("SortState = %+v", got)
	}

	p = ViewParams{Sort: "variation"}
	if got := p.SortState(def, services.SortByNIF, services.SortByName); got != def {
		t.Errorf("unknown key: SortState = %+v, want default", got)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"HEAD allowed with multiple", http.MethodHead, []string{http.MethodGet, http.MethodHead}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestIsHTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ui/invoices", nil)
	if IsHTMX(req) {
		t.Error("plain request reported as htmx")
	}
	req.Header.Set("HX-Request", "true")
	if !IsHTMX(req) {
		t.Error("htmx request not detected")
	}
}
