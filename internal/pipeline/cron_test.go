package pipeline

import (
	"testing"
	"time"
)

func TestNextCronTime(t *testing.T) {
	base := time.Date(2026, time.August, 14, 10, 30, 45, 0, time.UTC) // a Friday

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every minute",
			expr: "* * * * *",
			want: time.Date(2026, time.August, 14, 10, 31, 0, 0, time.UTC),
		},
		{
			name: "top of next hour",
			expr: "0 * * * *",
			want: time.Date(2026, time.August, 14, 11, 0, 0, 0, time.UTC),
		},
		{
			name: "daily at 3am",
			expr: "0 3 * * *",
			want: time.Date(2026, time.August, 15, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "first of month at 3am",
			expr: "0 3 1 * *",
			want: time.Date(2026, time.September, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "sundays at midnight",
			expr: "0 0 * * 0",
			want: time.Date(2026, time.August, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "comma list of minutes",
			expr: "15,45 * * * *",
			want: time.Date(2026, time.August, 14, 10, 45, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, base)
			if err != nil {
				t.Fatalf("nextCronTime(%q): %v", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("nextCronTime(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNextCronTimeRejectsMalformedExpressions(t *testing.T) {
	for _, expr := range []string{"", "* * *", "a * * * *", "1;2 * * * *"} {
		if _, err := nextCronTime(expr, time.Now()); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}
