package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/docverify/internal/client/services"
)

type fakeExec struct {
	loggedIn  bool
	challenge bool
	fail      map[string]error

	calls []string
	args  map[string][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if args != nil {
		if f.args == nil {
			f.args = map[string][]string{}
		}
		f.args[name] = args
	}
	return f.fail[name]
}

func (f *fakeExec) isLoggedIn() bool   { return f.loggedIn }
func (f *fakeExec) hasChallenge() bool { return f.challenge }
func (f *fakeExec) Register(ctx context.Context) error {
	return f.record("register", nil)
}
func (f *fakeExec) Login(ctx context.Context, args []string) error {
	f.loggedIn = true
	return f.record("login", args)
}
func (f *fakeExec) MFA(ctx context.Context, args []string) error { return f.record("mfa", args) }
func (f *fakeExec) Cancel(ctx context.Context) error             { return f.record("cancel", nil) }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) WhoAmI(ctx context.Context) error { return f.record("whoami", nil) }
func (f *fakeExec) Types(ctx context.Context) error  { return f.record("types", nil) }
func (f *fakeExec) Verify(ctx context.Context, args []string) error {
	return f.record("verify", args)
}
func (f *fakeExec) Retry(ctx context.Context) error     { return f.record("retry", nil) }
func (f *fakeExec) Status(ctx context.Context) error    { return f.record("status", nil) }
func (f *fakeExec) Reset(ctx context.Context) error     { return f.record("reset", nil) }
func (f *fakeExec) MFAStatus(ctx context.Context) error { return f.record("mfa-status", nil) }
func (f *fakeExec) MFASetup(ctx context.Context, args []string) error {
	return f.record("mfa-setup", args)
}
func (f *fakeExec) MFAEnable(ctx context.Context, args []string) error {
	return f.record("mfa-enable", args)
}
func (f *fakeExec) MFADisable(ctx context.Context) error    { return f.record("mfa-disable", nil) }
func (f *fakeExec) BackupCodes(ctx context.Context) error   { return f.record("backup-codes", nil) }
func (f *fakeExec) Activity(ctx context.Context) error      { return f.record("activity", nil) }
func (f *fakeExec) DeleteAccount(ctx context.Context) error { return f.record("delete-account", nil) }

// capturePrint swaps printlnFn for a recorder of printed lines.
func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrint(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login --remember",
		"help",
		"verify scan.png id_card",
		"status",
		"mfa 123456",
		"retry",
		"mfa-setup qr.png",
		"activity",
		"foobar",
		"logout",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	want := []string{"login", "verify", "status", "mfa", "retry", "mfa-setup", "activity", "logout"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", exec.calls, want)
	}
	if got := exec.args["verify"]; len(got) != 2 || got[0] != "scan.png" || got[1] != "id_card" {
		t.Fatalf("verify args = %v", got)
	}
	if got := exec.args["login"]; len(got) != 1 || got[0] != "--remember" {
		t.Fatalf("login args = %v", got)
	}
}

func TestRunREPL_HelpDependsOnState(t *testing.T) {
	tests := []struct {
		name string
		exec *fakeExec
		want string
	}{
		{"signed out", &fakeExec{}, helpSignedOut},
		{"signed in", &fakeExec{loggedIn: true}, helpSignedIn},
		{"challenge", &fakeExec{loggedIn: true, challenge: true}, helpChallenge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines := capturePrint(t)
			runREPL(context.Background(), tc.exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\n")))
			found := false
			for _, l := range *lines {
				if l == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("help output %v does not contain %q", *lines, tc.want)
			}
		})
	}
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	lines := capturePrint(t)

	input := strings.NewReader("get\nquit\nlogin\n")
	exec := &fakeExec{loggedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	got := strings.Join(*lines, "\n")
	if !strings.Contains(got, "Unknown command: get") || !strings.Contains(got, "Bye!") {
		t.Fatalf("output = %q", got)
	}
}

func TestRunREPL_ReportsErrors(t *testing.T) {
	lines := capturePrint(t)

	exec := &fakeExec{fail: map[string]error{
		"verify":         &services.ValidationError{Msg: "Please select both a document type and file"},
		"activity":       errors.New("socket closed"),
		"delete-account": errAborted,
		"status":         context.Canceled,
	}}
	input := strings.NewReader("verify\nactivity\ndelete-account\nstatus\nexit\n")

	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	got := strings.Join(*lines, "\n")
	for _, want := range []string{
		"Error: Please select both a document type and file",
		"Error: " + services.MsgGeneric,
		"Cancelled.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
	if strings.Count(got, "Error:") != 2 {
		t.Fatalf("context.Canceled should be silent, got %q", got)
	}
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	capturePrint(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("login\n")))
	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
