package log

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   Level
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"bogus", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNilLoggerDiscardsSafely(t *testing.T) {
	var l *Logger
	// None of these may panic on a nil receiver.
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
	l.SetLevel(LevelDebug)
	if got := l.GetLevel(); got <= LevelFatal {
		t.Errorf("nil logger GetLevel() = %v, want level above LevelFatal", got)
	}
}

func TestLevelGating(t *testing.T) {
	l := New("test", LevelWarn)
	if l.shouldLog(LevelDebug) {
		t.Error("debug should be suppressed at warn level")
	}
	if l.shouldLog(LevelInfo) {
		t.Error("info should be suppressed at warn level")
	}
	if !l.shouldLog(LevelWarn) {
		t.Error("warn should log at warn level")
	}
	if !l.shouldLog(LevelError) {
		t.Error("error should log at warn level")
	}
}

func TestNamedInheritsLevel(t *testing.T) {
	l := New("parent", LevelError)
	child := l.Named("child")
	if child.GetLevel() != LevelError {
		t.Errorf("Named() level = %v, want %v", child.GetLevel(), LevelError)
	}
}
