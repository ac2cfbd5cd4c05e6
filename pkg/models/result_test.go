package models

import "testing"

func TestDetermineResultType(t *testing.T) {
	tests := []struct {
		name            string
		value           Value
		isPass          bool
		hasPatternItems bool
		hasWaiverValue  bool
		want            ResultType
	}{
		{"error value", ErrorValue(), false, false, false, ExecutionErrorResult},
		{"na no pattern no waiver pass", NA(), true, false, false, InfoOnly},
		{"na no pattern no waiver fail", NA(), false, false, false, FailWithValues},
		{"na waiver pass", NA(), true, false, true, PassWithWaivers},
		{"na waiver fail", NA(), false, false, true, FailWithWaivers},
		{"zero no pattern no waiver", Count(0), true, false, false, PassWithoutValues},
		{"zero pattern no waiver", Count(0), false, true, false, FailWithoutCheckValues},
		{"zero pattern waiver pass", Count(0), true, true, true, PassWithFullWaivers},
		{"zero pattern waiver fail", Count(0), false, true, true, FailWithoutCheckValues},
		{"positive waiver pass", Count(3), true, true, true, PassWithWaivers},
		{"positive waiver fail", Count(3), false, true, true, FailWithWaivers},
		{"positive no waiver pass", Count(3), true, true, false, PassWithValues},
		{"positive no waiver fail", Count(3), false, true, false, FailWithValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineResultType(tt.value, tt.isPass, tt.hasPatternItems, tt.hasWaiverValue)
			if got != tt.want {
				t.Errorf("DetermineResultType(%v, %v, %v, %v) = %v, want %v",
					tt.value, tt.isPass, tt.hasPatternItems, tt.hasWaiverValue, got, tt.want)
			}
		})
	}
}

func TestGroupMapSortedKeys(t *testing.T) {
	g := GroupMap{
		"INFO01":  {Description: "info"},
		"ERROR02": {Description: "error2"},
		"ERROR01": {Description: "error1"},
		"WARN01":  {Description: "warn"},
	}
	keys := g.SortedKeys()
	want := []string{"ERROR01", "ERROR02", "WARN01", "INFO01"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestDetailItemHasLocation(t *testing.T) {
	cases := []struct {
		d    DetailItem
		want bool
	}{
		{DetailItem{LineNumber: 0, FilePath: "N/A"}, false},
		{DetailItem{LineNumber: 0, FilePath: "foo.log"}, false},
		{DetailItem{LineNumber: 5, FilePath: ""}, false},
		{DetailItem{LineNumber: 5, FilePath: "N/A"}, false},
		{DetailItem{LineNumber: 5, FilePath: "foo.log"}, true},
	}
	for _, c := range cases {
		if got := c.d.HasLocation(); got != c.want {
			t.Errorf("HasLocation(%+v) = %v, want %v", c.d, got, c.want)
		}
	}
}

func TestCheckResultIsConfigError(t *testing.T) {
	r := CheckResult{BasicErrors: []string{"[CONFIG_ERROR]: missing file x"}}
	if !r.IsConfigError() {
		t.Error("expected IsConfigError true")
	}
	if !r.HasConfigErrorMarker() {
		t.Error("expected HasConfigErrorMarker true")
	}

	r2 := CheckResult{BasicErrors: []string{"[CONFIG_ERROR]: x"}, ErrorGroups: GroupMap{"ERROR01": {}}}
	if r2.IsConfigError() {
		t.Error("expected IsConfigError false when groups present")
	}
}
