package engine

import "testing"

func TestRender(t *testing.T) {
	vars := map[string]string{"schema": "sales", "limit": "0"}

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "plain", query: "SELECT * FROM orders", want: "SELECT * FROM orders"},
		{name: "variable", query: "SELECT * FROM {{.schema}}.orders WHERE total < {{.limit}}", want: "SELECT * FROM sales.orders WHERE total < 0"},
		{name: "missing variable", query: "SELECT * FROM {{.tenant}}.orders", wantErr: true},
		{name: "bad template", query: "SELECT {{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(tt.query, vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_NilVars(t *testing.T) {
	if got, err := render("SELECT 1", nil); err != nil || got != "SELECT 1" {
		t.Errorf("render() = %q, %v, want query unchanged", got, err)
	}
	if _, err := render("SELECT {{.x}}", nil); err == nil {
		t.Error("render() error = nil, want missing variable error")
	}
}
