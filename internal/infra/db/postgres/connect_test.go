package postgres

import "testing"

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "defaults",
			got:  DSN("db", 0, "triage", "s3cr3t", "logs", ""),
			want: "postgres://triage:s3cr3t@db:5432/logs?sslmode=disable",
		},
		{
			name: "explicit sslmode",
			got:  DSN("10.1.2.3", 6543, "u", "p", "d", "require"),
			want: "postgres://u:p@10.1.2.3:6543/d?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("DSN = %q, want %q", tt.got, tt.want)
			}
		})
	}
}
