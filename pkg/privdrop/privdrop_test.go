package privdrop

import "testing"

func TestTargetEnabled(t *testing.T) {
	if (Target{}).Enabled() {
		t.Fatalf("zero-value target must not be enabled")
	}
	if !(Target{User: "www-data"}).Enabled() {
		t.Fatalf("target with a user must be enabled")
	}
}
