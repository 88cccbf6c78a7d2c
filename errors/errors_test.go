package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/napi-go"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseDecode,
				Kind:     KindNumberExpected,
				Path:     []string{"args[0]", "bar"},
				GoType:   "uint64",
				HostType: "string",
				Detail:   "cannot convert",
			},
			contains: []string{"[decode]", "number_expected", "args[0].bar", "uint64", "string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHost,
				Kind:  KindGenericFailure,
			},
			contains: []string{"[host]", "generic_failure"},
		},
		{
			name: "engine code and cause",
			err: &Error{
				Phase:      PhaseHost,
				Kind:       KindPendingException,
				Detail:     "boom",
				EngineCode: 7,
				Cause:      errors.New("underlying error"),
			},
			contains: []string{"[host]", "pending_exception", "boom", "engine code 7", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status napi.Status
		want   Kind
	}{
		{napi.StatusInvalidArg, KindInvalidArg},
		{napi.StatusObjectExpected, KindObjectExpected},
		{napi.StatusStringExpected, KindStringExpected},
		{napi.StatusNameExpected, KindNameExpected},
		{napi.StatusFunctionExpected, KindFunctionExpected},
		{napi.StatusNumberExpected, KindNumberExpected},
		{napi.StatusBooleanExpected, KindBooleanExpected},
		{napi.StatusArrayExpected, KindArrayExpected},
		{napi.StatusGenericFailure, KindGenericFailure},
		{napi.StatusPendingException, KindPendingException},
		{napi.StatusCancelled, KindCancelled},
		{napi.StatusOK, KindGenericFailure},
		{napi.Status(12), KindGenericFailure},
		{napi.Status(99), KindGenericFailure},
		{napi.Status(-1), KindGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := KindFromStatus(tt.status); got != tt.want {
				t.Errorf("KindFromStatus(%d) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestFromStatus(t *testing.T) {
	info := &napi.ExtendedErrorInfo{
		Message:         "A number was expected",
		EngineErrorCode: 3,
		Status:          napi.StatusNumberExpected,
	}
	err := FromStatus(napi.StatusNumberExpected, info)

	if err.Kind != KindNumberExpected {
		t.Errorf("Kind = %s, want %s", err.Kind, KindNumberExpected)
	}
	if err.Detail != info.Message {
		t.Errorf("Detail = %q, want %q", err.Detail, info.Message)
	}
	if err.EngineCode != 3 {
		t.Errorf("EngineCode = %d, want 3", err.EngineCode)
	}
	if err.Message() != info.Message {
		t.Errorf("Message() = %q, want %q", err.Message(), info.Message)
	}
}

func TestFromStatus_RecordStatusWins(t *testing.T) {
	info := &napi.ExtendedErrorInfo{Status: napi.StatusStringExpected}
	err := FromStatus(napi.StatusGenericFailure, info)
	if err.Kind != KindStringExpected {
		t.Errorf("Kind = %s, want %s", err.Kind, KindStringExpected)
	}

	// A cleared record falls back to the call's own status.
	err = FromStatus(napi.StatusArrayExpected, &napi.ExtendedErrorInfo{})
	if err.Kind != KindArrayExpected {
		t.Errorf("Kind = %s, want %s", err.Kind, KindArrayExpected)
	}
}

func TestLastErrorUnavailable(t *testing.T) {
	err := LastErrorUnavailable(napi.StatusObjectExpected, napi.StatusInvalidArg)
	if err.Kind != KindObjectExpected {
		t.Errorf("Kind = %s, want %s", err.Kind, KindObjectExpected)
	}
	var cause *Error
	if !errors.As(err.Unwrap(), &cause) {
		t.Fatal("cause is not *Error")
	}
	if cause.Kind != KindInvalidArg {
		t.Errorf("cause Kind = %s, want %s", cause.Kind, KindInvalidArg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindGenericFailure,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindArrayExpected,
		Path:  []string{"foo"},
	}

	if !errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindArrayExpected}) {
		t.Error("should match same phase and kind")
	}
	if !errors.Is(err, &Error{Kind: KindArrayExpected}) {
		t.Error("should match kind without phase")
	}
	if errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindArrayExpected}) {
		t.Error("should not match different phase")
	}
	if errors.Is(err, &Error{Kind: KindObjectExpected}) {
		t.Error("should not match different kind")
	}
}

func TestKindOf(t *testing.T) {
	inner := OutOfBounds(PhaseDecode, []string{"args"}, 2, 1)
	wrapped := Wrap(PhaseDispatch, KindGenericFailure, inner, "decode arguments")

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindGenericFailure {
		t.Errorf("KindOf(wrapped) = %s, %v", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain) should report false")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseDecode, KindNumberExpected).
		Path("args[0]").
		GoType("uint64").
		HostType("string").
		Value("x").
		Detail("got %q", "x").
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindNumberExpected {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != `got "x"` {
		t.Errorf("Detail = %q", err.Detail)
	}
	if len(err.Path) != 1 || err.Path[0] != "args[0]" {
		t.Errorf("Path = %v", err.Path)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"out of bounds", OutOfBounds(PhaseDecode, nil, 2, 1), KindInvalidArg},
		{"arity", Arity(PhaseDecode, 1, 0, false), KindInvalidArg},
		{"too many", TooManyArguments(20, 16), KindInvalidArg},
		{"invalid string", InvalidString(PhaseEncode, nil, "a\x00b"), KindInvalidArg},
		{"overflow", Overflow(PhaseDecode, nil, 300.0, "uint8"), KindInvalidArg},
		{"unsupported", Unsupported(PhaseEncode, nil, "chan int"), KindGenericFailure},
		{"nil pointer", NilPointer(PhaseDecode, nil, "*int"), KindInvalidArg},
		{"not found", NotFound(PhaseDispatch, "function", "7"), KindGenericFailure},
		{"registration", Registration("m", "f", errors.New("x")), KindGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestThrowable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "host detail",
			err:      &Error{Phase: PhaseHost, Kind: KindInvalidArg, Detail: "bad input"},
			wantCode: "invalid_arg",
			wantMsg:  "bad input",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: "generic_failure",
			wantMsg:  "boom",
		},
		{
			name:     "wrapped kind",
			err:      Registration("m", "f", &Error{Phase: PhaseHost, Kind: KindInvalidArg}),
			wantCode: "generic_failure",
		},
		{
			name:     "kind below plain wrapper",
			err:      fmt.Errorf("outer: %w", &Error{Phase: PhaseDecode, Kind: KindNumberExpected, Detail: "x"}),
			wantCode: "number_expected",
		},
		{
			name:     "NUL escaped",
			err:      errors.New("a\x00b"),
			wantCode: "generic_failure",
			wantMsg:  `a\0b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := Throwable(tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
			if strings.IndexByte(msg, 0) >= 0 {
				t.Errorf("msg %q contains NUL", msg)
			}
		})
	}
}
