package shell

import (
	"context"
	"strings"
	"testing"
)

func TestValidate_Allowed(t *testing.T) {
	argv, err := Validate("uptime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(argv) != 1 || argv[0] != "uptime" {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

func TestValidate_Injection(t *testing.T) {
	cases := []string{
		"ls; rm -rf /",
		"cat /etc/passwd | grep root",
		"echo $(whoami)",
		"ls && rm -rf /",
	}
	for _, c := range cases {
		_, err := Validate(c)
		serr, ok := err.(*Error)
		if !ok || serr.Reason != ReasonInjection {
			t.Errorf("%q: want Injection, got %v", c, err)
		}
	}
}

func TestValidate_NotAllowed(t *testing.T) {
	_, err := Validate("nc -l 1234")
	serr, ok := err.(*Error)
	if !ok || serr.Reason != ReasonNotAllowed {
		t.Fatalf("want NotAllowed, got %v", err)
	}
}

func TestValidate_Blocked(t *testing.T) {
	_, err := Validate("rm -rf /tmp")
	serr, ok := err.(*Error)
	if !ok || serr.Reason != ReasonBlocked {
		t.Fatalf("want Blocked, got %v", err)
	}
	if !strings.Contains(err.Error(), "rm") {
		t.Errorf("error should name the blocked command: %v", err)
	}
}

func TestValidate_SensitivePath(t *testing.T) {
	_, err := Validate("cat /root/.ssh/id_rsa")
	serr, ok := err.(*Error)
	if !ok || serr.Reason != ReasonSensitivePath {
		t.Fatalf("want SensitivePath, got %v", err)
	}
}

func TestValidate_SystemctlVerbNarrowing(t *testing.T) {
	if _, err := Validate("systemctl status sshd"); err != nil {
		t.Errorf("status should be allowed: %v", err)
	}
	_, err := Validate("systemctl restart sshd")
	serr, ok := err.(*Error)
	if !ok || serr.Reason != ReasonNotAllowed {
		t.Fatalf("restart should be NotAllowed, got %v", err)
	}
}

func TestValidate_Empty(t *testing.T) {
	_, err := Validate("   ")
	serr, ok := err.(*Error)
	if !ok || serr.Reason != ReasonEmpty {
		t.Fatalf("want Empty, got %v", err)
	}
}

func TestExecute_Success(t *testing.T) {
	res, err := Execute(context.Background(), "uname")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout == "" {
		t.Errorf("expected non-empty stdout")
	}
}

func TestExecute_NonZeroExitIsNotFailure(t *testing.T) {
	res, err := Execute(context.Background(), "ls /nonexistent-path-xyz")
	if err != nil {
		t.Fatalf("non-zero exit should not be a sandbox error: %v", err)
	}
	if res.ExitCode == 0 {
		t.Errorf("expected a non-zero exit code for a missing path")
	}
}

func TestExecute_RejectsBeforeSpawn(t *testing.T) {
	_, err := Execute(context.Background(), "rm -rf /")
	if err == nil {
		t.Fatalf("expected rejection")
	}
}
