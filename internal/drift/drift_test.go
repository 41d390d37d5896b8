package drift

import "testing"

func TestFingerprintOrderIndependent(t *testing.T) {
	a, err := Fingerprint([]string{"id", "name", "createdAt"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint([]string{"createdAt", "id", "name"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ for the same set: %s vs %s", a, b)
	}

	c, err := Fingerprint([]string{"id", "name"})
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("fingerprints collide for different sets")
	}
}

func TestFingerprintEmpty(t *testing.T) {
	a, err := Fingerprint(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a == "" {
		t.Errorf("empty fingerprints inconsistent: %q vs %q", a, b)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		expected   []string
		actual     []string
		match      bool
		missing    []string
		unexpected []string
	}{
		{
			name:     "identical",
			expected: []string{"id", "name"},
			actual:   []string{"name", "id"},
			match:    true,
		},
		{
			name:       "drifted",
			expected:   []string{"id", "name", "email"},
			actual:     []string{"id", "name", "legacy"},
			match:      false,
			missing:    []string{"email"},
			unexpected: []string{"legacy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Check(tt.expected, tt.actual)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if report.Match != tt.match {
				t.Errorf("Match = %v, want %v", report.Match, tt.match)
			}
			if len(report.Missing) != len(tt.missing) {
				t.Errorf("Missing = %v, want %v", report.Missing, tt.missing)
			}
			for i := range tt.missing {
				if report.Missing[i] != tt.missing[i] {
					t.Errorf("Missing = %v, want %v", report.Missing, tt.missing)
					break
				}
			}
			if len(report.Unexpected) != len(tt.unexpected) {
				t.Errorf("Unexpected = %v, want %v", report.Unexpected, tt.unexpected)
			}
		})
	}
}
