package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestDebugfRespectsGate(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	SetDebug(false)
	Debugf("hidden %s", "x")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug output emitted while disabled: %s", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	Debugf("visible %s", "y")
	if !strings.Contains(buf.String(), "visible y") {
		t.Fatalf("missing debug output; got: %s", buf.String())
	}
}

func TestHelpersWrite(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	Infof("info %d", 1)
	Errorf("err %v", "E")
	Printf("plain")

	out := buf.String()
	for _, want := range []string{"info 1", "err E", "plain"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output: %s", want, out)
		}
	}
}
