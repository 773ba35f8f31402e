package model

import "testing"

func TestNewTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    NewTask
		wantErr bool
	}{
		{name: "empty title", task: NewTask{Title: ""}, wantErr: true},
		{name: "whitespace title", task: NewTask{Title: " \t\n"}, wantErr: true},
		{name: "plain title", task: NewTask{Title: "Write report"}},
		{name: "gap priority", task: NewTask{Title: "x", Priority: 2}, wantErr: true},
		{name: "urgent", task: NewTask{Title: "x", Priority: PriorityUrgent}},
		{name: "bad category", task: NewTask{Title: "x", Category: "someday"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestNewTaskValidateDefaultsCategory(t *testing.T) {
	n := NewTask{Title: "Write report", Priority: PriorityMedium}
	if err := n.Validate(); err != nil {
		t.Fatal(err)
	}
	if n.Category != CategoryUnclassified {
		t.Errorf("Category = %q, want unclassified", n.Category)
	}
}

func TestParsePriority(t *testing.T) {
	tests := map[string]Priority{
		"low": PriorityLow, "1": PriorityMedium, "HIGH": PriorityHigh, "urgent": PriorityUrgent,
	}
	for in, want := range tests {
		got, ok := ParsePriority(in)
		if !ok || got != want {
			t.Errorf("ParsePriority(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	if _, ok := ParsePriority("2"); ok {
		t.Error("2 is not a priority band")
	}
}

func TestFilterMatches(t *testing.T) {
	if !FilterAll.Matches(TaskStatusDeleted) {
		t.Error("all should match deleted")
	}
	if FilterActive.Matches(TaskStatusDeleted) {
		t.Error("active should not match deleted")
	}
	if !FilterDeleted.Matches(TaskStatusDeleted) {
		t.Error("deleted should match deleted")
	}
}

func TestTaskPatchEmpty(t *testing.T) {
	if !(TaskPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if DeferPatch().Empty() {
		t.Error("defer patch should not be empty")
	}
	if *DeferPatch().DeferralCountDelta != 1 {
		t.Error("defer patch should carry a delta of 1")
	}
}
