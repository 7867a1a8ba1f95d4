package model

import (
	"reflect"
	"testing"
)

func TestStringArray_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   StringArray
	}{
		{"简单标识", StringArray{"morning", "late"}},
		{"含逗号", StringArray{"late,night", "morning"}},
		{"含花括号与引号", StringArray{"{x}", `say "hi"`, `back\slash`}},
		{"含空格", StringArray{" early bird ", "Mon"}},
		{"空数组", StringArray{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Value()
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}

			var got StringArray
			if err := got.Scan(v); err != nil {
				t.Fatalf("Scan(%v) error = %v", v, err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("往返结果 = %q, want %q (literal %v)", got, tt.in, v)
			}
		})
	}
}

func TestStringArray_ScanPostgresLiteral(t *testing.T) {
	var got StringArray
	if err := got.Scan([]byte(`{"late,night",morning}`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := StringArray{"late,night", "morning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %q, want %q", got, want)
	}
}

func TestStringArray_NilValues(t *testing.T) {
	v, err := StringArray(nil).Value()
	if err != nil || v != "{}" {
		t.Errorf("nil 应写为 {}，实际 %v (err %v)", v, err)
	}

	got := StringArray{"stale"}
	if err := got.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if got != nil {
		t.Errorf("NULL 应解析为 nil，实际 %q", got)
	}
}
