package telemetry

import "testing"

func TestWithSearchPath(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "url",
			dsn:  "postgres://u:p@localhost:5432/shop?sslmode=disable",
			want: "postgres://u:p@localhost:5432/shop?search_path=storefront&sslmode=disable",
		},
		{
			name: "url replaces existing",
			dsn:  "postgresql://localhost/shop?search_path=public",
			want: "postgresql://localhost/shop?search_path=storefront",
		},
		{
			name: "key value",
			dsn:  "host=localhost dbname=shop",
			want: "host=localhost dbname=shop search_path=storefront",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithSearchPath(tt.dsn, "storefront")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("empty schema leaves dsn alone", func(t *testing.T) {
		got, _ := WithSearchPath("host=x", "")
		if got != "host=x" {
			t.Errorf("unexpected %q", got)
		}
	})
}
