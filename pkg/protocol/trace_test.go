package protocol

import "testing"

func TestTraceValidate(t *testing.T) {
	tests := []struct {
		name    string
		trace   *Trace
		wantErr bool
	}{
		{"nil", nil, true},
		{"zero", &Trace{}, true},
		{"brain dump only", &Trace{BrainDump: "dark mode"}, false},
		{"stage only", &Trace{UserStory: &UserStory{Title: "Dark mode"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trace.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
