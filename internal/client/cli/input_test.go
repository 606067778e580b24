package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  owner@example.com  \n"))

	got, err := GetSimpleText(reader, "Principal id", &out)
	if err != nil {
		t.Fatalf("GetSimpleText error: %v", err)
	}
	if got != "owner@example.com" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(out.String(), "Principal id") {
		t.Errorf("prompt not printed: %q", out.String())
	}
}

func TestGetSimpleTextPartialLineAtEOF(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("no-newline"))

	got, err := GetSimpleText(reader, "x", &out)
	if err != nil {
		t.Fatalf("GetSimpleText error: %v", err)
	}
	if got != "no-newline" {
		t.Errorf("got %q", got)
	}
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("line one\nline two\n\nignored\n"))

	got, err := GetMultiline(reader, "Entry text", &out)
	if err != nil {
		t.Fatalf("GetMultiline error: %v", err)
	}
	if got != "line one\nline two" {
		t.Errorf("got %q", got)
	}
}

func TestGetCredentialUsesSeam(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	pw, err := GetCredential(&out, "Credential")
	if err != nil {
		t.Fatalf("GetCredential error: %v", err)
	}
	if string(pw) != "hunter2" {
		t.Errorf("got %q", pw)
	}
}
